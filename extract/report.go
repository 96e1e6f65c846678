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

// File: extract/report.go
// Purpose: Provides the types of an assembled crash report: the report itself,
// its frames and the symbols collected for each frame. Values of these types
// are built once by Assemble and never mutated afterwards.

package extract

import (
	"time"

	"github.com/edespino/crashscope/backend"
)

// AdvisoryNoDebugInfo is attached to reports for which no frame could be
// mapped to source. Hosts show it to the user verbatim.
const AdvisoryNoDebugInfo = "No debug information is available for this crash; recompile with debug information (for example -g) to get source locations and variable values."

// CrashReport is the bounded result of one build.
type CrashReport struct {
	ID      string         `json:"id" yaml:"id"`
	Created time.Time      `json:"created" yaml:"created"`
	Target  backend.Target `json:"target" yaml:"target"`
	Reason  TriggerReason  `json:"reason" yaml:"reason"`
	Fault   string         `json:"fault,omitempty" yaml:"fault,omitempty"`

	// Module is the primary module name, empty when none was found.
	Module string  `json:"module" yaml:"module"`
	Frames []Frame `json:"frames" yaml:"frames"`

	Degraded  bool     `json:"degraded" yaml:"degraded"`
	Truncated bool     `json:"truncated" yaml:"truncated"`
	Advisory  string   `json:"advisory,omitempty" yaml:"advisory,omitempty"`
	Notes     []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ModuleName returns the primary module name or "unknown".
func (r *CrashReport) ModuleName() string {
	if r.Module == "" {
		return "unknown"
	}
	return r.Module
}

// Frame is one activation record, innermost first.
type Frame struct {
	Index    int          `json:"index" yaml:"index"`
	PC       uint64       `json:"pc" yaml:"pc"`
	Function string       `json:"function,omitempty" yaml:"function,omitempty"`
	File     string       `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int          `json:"line,omitempty" yaml:"line,omitempty"`
	Module   string       `json:"module,omitempty" yaml:"module,omitempty"`
	Symbols  []Symbol     `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Source   []SourceLine `json:"source,omitempty" yaml:"source,omitempty"`

	raw backend.RawFrame
}

// HasSource reports whether the frame was resolved to a file and line.
func (f Frame) HasSource() bool {
	return f.File != "" && f.Line > 0
}

// Symbol is one argument or local variable of a frame.
type Symbol struct {
	Name  string             `json:"name" yaml:"name"`
	Kind  backend.SymbolKind `json:"kind" yaml:"kind"`
	Type  string             `json:"type,omitempty" yaml:"type,omitempty"`
	Value string             `json:"value,omitempty" yaml:"value,omitempty"`

	// Failed is set when the type or the value could not be resolved.
	Failed bool `json:"failed,omitempty" yaml:"failed,omitempty"`
	// Truncated is set when the type or value text was cut to the limit.
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// SourceLine is one numbered line of source shown around a frame.
type SourceLine struct {
	Number int    `json:"number" yaml:"number"`
	Text   string `json:"text" yaml:"text"`
}
