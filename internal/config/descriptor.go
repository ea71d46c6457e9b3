// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DescriptorNames are looked up next to the executable, in order.
var DescriptorNames = []string{"app-config.json", "app-config.yaml", "app-config.yml"}

// AppDescriptor describes the packaged application.
type AppDescriptor struct {
	Name        string `json:"name" yaml:"name"`
	ID          string `json:"id" yaml:"id"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
}

// DefaultDescriptor returns the descriptor used when none is found.
func DefaultDescriptor() AppDescriptor {
	return AppDescriptor{
		Name:        "Desktop App",
		ID:          "desktop-app",
		Version:     "1.0.0",
		Description: "",
	}
}

// ReadDescriptor parses a descriptor file. Fields absent from the file keep
// their defaults. YAML is used for .yaml/.yml files, JSON otherwise.
func ReadDescriptor(path string) (AppDescriptor, error) {
	desc := DefaultDescriptor()

	data, err := os.ReadFile(path)
	if err != nil {
		return desc, fmt.Errorf("failed to read app descriptor: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &desc); err != nil {
			return DefaultDescriptor(), fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &desc); err != nil {
			return DefaultDescriptor(), fmt.Errorf("failed to parse JSON: %w", err)
		}
	}

	desc.ID = strings.TrimSpace(desc.ID)
	if desc.ID == "" {
		desc.ID = DefaultDescriptor().ID
	}
	return desc, nil
}
