// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mention

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// directoryFile is the on-disk shape of a persona directory:
//
//	assistants:
//	  - name: warren_buffett
//	    title: Warren Buffett
//	    description: The oracle of Omaha
type directoryFile struct {
	Assistants []Mentionable `yaml:"assistants" toml:"assistants" json:"assistants"`
}

// LoadDirectory reads a persona directory from a YAML, TOML or JSON file.
// The format is chosen by extension; unknown extensions are parsed as YAML.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}
	return ParseDirectory(data, filepath.Ext(path))
}

// ParseDirectory decodes a persona directory. ext selects the format
// (".toml", ".json", anything else is YAML).
func ParseDirectory(data []byte, ext string) (*Directory, error) {
	var f directoryFile
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("failed to decode TOML directory: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode JSON directory: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode YAML directory: %w", err)
		}
	}
	return NewDirectory(f.Assistants...)
}
