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

// File: backend/snapshot/snapshot.go
// Purpose: A recorded debug session that can be replayed through the backend
// capability set. Snapshots are stored as YAML so that crash reports can be
// reproduced without the original core file or engine, and they double as the
// in-memory engine used by the extraction tests.

// Package snapshot implements a replayable backend.Backend.
package snapshot

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Snapshot is the serialized state of one stopped debuggee.
type Snapshot struct {
	Engine  string   `yaml:"engine,omitempty"`
	Program string   `yaml:"program,omitempty"`
	Fault   string   `yaml:"fault,omitempty"`
	Modules []Module `yaml:"modules"`
	Frames  []Frame  `yaml:"frames"`

	// Fault injection, used by recordings of failing engines and by tests.
	Unavailable     bool   `yaml:"unavailable,omitempty"`
	ModulesError    string `yaml:"modules_error,omitempty"`
	StackError      string `yaml:"stack_error,omitempty"`
	StackErrorAfter int    `yaml:"stack_error_after,omitempty"`
}

// Module is one recorded image.
type Module struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path,omitempty"`
	Base      uint64 `yaml:"base"`
	DebugInfo bool   `yaml:"debug_info"`
}

// Frame is one recorded activation record.
type Frame struct {
	PC         uint64   `yaml:"pc"`
	Function   string   `yaml:"function,omitempty"`
	File       string   `yaml:"file,omitempty"`
	Line       int      `yaml:"line,omitempty"`
	NoScope    bool     `yaml:"no_scope,omitempty"`
	ScopeError string   `yaml:"scope_error,omitempty"`
	Symbols    []Symbol `yaml:"symbols,omitempty"`
}

// Symbol is one recorded argument or local.
type Symbol struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind,omitempty"`
	Type       string `yaml:"type,omitempty"`
	Value      string `yaml:"value,omitempty"`
	TypeError  bool   `yaml:"type_error,omitempty"`
	ValueError bool   `yaml:"value_error,omitempty"`
}

// Parse decodes a YAML snapshot.
func Parse(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snap, nil
}

// Load reads a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Parse(data)
}

// Save writes the snapshot to path as YAML.
func (s *Snapshot) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
