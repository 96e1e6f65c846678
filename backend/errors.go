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

// File: backend/errors.go

package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineUnavailable means no engine or session is reachable.
	ErrEngineUnavailable = errors.New("debugger engine unavailable")

	// ErrEngine matches every *EngineError through errors.Is.
	ErrEngine = errors.New("debugger engine error")

	// ErrNoScope means the frame carries no debug information.
	ErrNoScope = errors.New("no scope information for frame")

	// ErrSymbolUnresolved means a single symbol's type or value could not be read.
	ErrSymbolUnresolved = errors.New("symbol could not be resolved")
)

// EngineError reports a failed engine call. Code is the engine's own status
// (an exit code, an RPC error string, ...).
type EngineError struct {
	Op   string
	Code string
	Err  error
}

// NewEngineError wraps err as a failure of operation op.
func NewEngineError(op, code string, err error) *EngineError {
	return &EngineError{Op: op, Code: code, Err: err}
}

func (e *EngineError) Error() string {
	msg := e.Op + " failed"
	if e.Code != "" {
		msg += fmt.Sprintf(" (code %s)", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrEngine) match any EngineError.
func (e *EngineError) Is(target error) bool {
	return target == ErrEngine
}

// IsUnavailable reports whether err means the whole engine is unreachable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrEngineUnavailable)
}
