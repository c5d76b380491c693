// SPDX-License-Identifier: Apache-2.0

// Package format parses and writes the two interchangeable serializations
// used for module definitions and workflow files. The serialization is
// selected by file extension; equivalent YAML and JSON documents produce an
// identical in-memory form.
package format

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile reads and parses a file into v, selecting the codec by extension.
func ParseFile(filePath string, v interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	return ParseData(data, filepath.Ext(filePath), v)
}

// ParseData parses data into v according to the given file extension.
// Unknown extensions are tried as YAML first, then JSON.
func ParseData(data []byte, ext string, v interface{}) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("error parsing YAML: %w", err)
		}
		return nil
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("error parsing JSON: %w", err)
		}
		return nil
	default:
		yamlErr := yaml.Unmarshal(data, v)
		if yamlErr == nil {
			return nil
		}
		if jsonErr := json.Unmarshal(data, v); jsonErr == nil {
			return nil
		}
		return fmt.Errorf("failed to parse as YAML (%v) or JSON", yamlErr)
	}
}

// WriteFile writes v to a file in the format selected by its extension.
// YAML is the default for unknown extensions.
func WriteFile(filePath string, v interface{}) error {
	var data []byte
	var err error

	if IsJSONFile(filePath) {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("error marshaling data: %w", err)
	}

	return os.WriteFile(filePath, data, 0644)
}

// FormatData renders v as a YAML or JSON string for display.
func FormatData(v interface{}, useYAML bool) (string, error) {
	var data []byte
	var err error

	if useYAML {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return "", fmt.Errorf("error formatting data: %w", err)
	}

	return string(data), nil
}

// IsYAMLFile returns true if the file extension suggests YAML content.
func IsYAMLFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return ext == ".yaml" || ext == ".yml"
}

// IsJSONFile returns true if the file extension suggests JSON content.
func IsJSONFile(filePath string) bool {
	return strings.ToLower(filepath.Ext(filePath)) == ".json"
}
