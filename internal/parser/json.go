package parser

import (
	"encoding/json"
	"fmt"
	"io"
)

func ParseJSONProfiles(reader io.Reader) (*ProfilesFile, error) {
	var data ProfilesFile
	decoder := json.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON profiles: %w", err)
	}

	return &data, nil
}
