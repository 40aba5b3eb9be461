package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

func ParseYAMLProfiles(reader io.Reader) (*ProfilesFile, error) {
	var data ProfilesFile
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML profiles: %w", err)
	}

	return &data, nil
}
