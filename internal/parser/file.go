package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ParseProfilesFile opens and parses a dataset file, dispatching on the
// file extension.
func ParseProfilesFile(path string) (*ProfilesFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSONProfiles(file)
	case ".yaml", ".yml":
		return ParseYAMLProfiles(file)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}
}
