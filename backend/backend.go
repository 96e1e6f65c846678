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

// File: backend/backend.go
// Purpose: Defines the capability set every native debugger engine adapter must
// provide so that crash extraction stays engine-agnostic. Engine specific types
// (gdb output, delve RPC structures, ...) never leave the adapter packages.

// Package backend describes the contract between crashscope and a live debug
// session exposed by a native debugger engine.
//
// Adapters live in sub-packages:
//
//   - gdb: runs `gdb --batch` against a core file or a live pid
//   - delve: talks JSON-RPC to a headless dlv server
//   - snapshot: replays a recorded session (also the in-memory test engine)
//
// All operations are synchronous. A Backend is not safe for concurrent use;
// callers serialize access per session.
package backend

import (
	"context"
	"fmt"
)

// Target identifies the debuggee an adapter is attached to.
type Target struct {
	Engine  string `json:"engine" yaml:"engine"`
	Program string `json:"program,omitempty" yaml:"program,omitempty"`
	Core    string `json:"core,omitempty" yaml:"core,omitempty"`
	PID     int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// String returns a short human readable identity for logs.
func (t Target) String() string {
	switch {
	case t.Core != "":
		return fmt.Sprintf("%s:%s", t.Engine, t.Core)
	case t.PID != 0:
		return fmt.Sprintf("%s:pid %d", t.Engine, t.PID)
	case t.Address != "":
		return fmt.Sprintf("%s:%s", t.Engine, t.Address)
	case t.Program != "":
		return fmt.Sprintf("%s:%s", t.Engine, t.Program)
	}
	return t.Engine
}

// ModuleInfo describes one loaded executable or library image. A primary
// module without debug information degrades the report.
type ModuleInfo struct {
	Name         string `json:"name" yaml:"name"`
	Path         string `json:"path,omitempty" yaml:"path,omitempty"`
	Base         uint64 `json:"base" yaml:"base"`
	HasDebugInfo bool   `json:"has_debug_info" yaml:"has_debug_info"`
}

// RawFrame is one activation record as reported by the engine's unwinder.
// Index is the engine's own frame number; PC may be zero when the engine
// could not report an address. Hint holds whatever location the unwinder
// printed for this frame. Inlined frames share a PC with their caller, so
// the hint is the only place that tells them apart.
type RawFrame struct {
	Index int
	PC    uint64
	Hint  Location
}

// Location is the result of resolving an address. Every field is optional.
type Location struct {
	Function string
	File     string
	Line     int
}

// HasSource reports whether both file and line are known.
func (l Location) HasSource() bool {
	return l.File != "" && l.Line > 0
}

// Complete reports whether function, file and line are all known.
func (l Location) Complete() bool {
	return l.Function != "" && l.HasSource()
}

// Merge fills the empty fields of l from other. File and line are taken
// together.
func (l Location) Merge(other Location) Location {
	if l.Function == "" {
		l.Function = other.Function
	}
	if !l.HasSource() && other.HasSource() {
		l.File, l.Line = other.File, other.Line
	}
	return l
}

// SymbolKind tells arguments apart from other locals.
type SymbolKind string

const (
	KindArgument SymbolKind = "argument"
	KindLocal    SymbolKind = "local"
)

// ScopeSymbol is one name enumerated from a frame scope.
type ScopeSymbol struct {
	Name string
	Kind SymbolKind
}

// Backend is the capability set of a native debugger engine.
type Backend interface {
	// Target returns the identity of the debuggee.
	Target() Target

	// ListModules returns the loaded images in engine order. It fails with
	// ErrEngineUnavailable when no session is attached.
	ListModules(ctx context.Context) ([]ModuleInfo, error)

	// CaptureStackTrace returns at most maxDepth frames, innermost first.
	// It may return the frames it already produced together with an error.
	CaptureStackTrace(ctx context.Context, maxDepth int) ([]RawFrame, error)

	// ResolveNameAndLine maps an address to function, file and line. Missing
	// debug information yields an empty field, never an error.
	ResolveNameAndLine(ctx context.Context, pc uint64) (Location, error)

	// EnterScope acquires the lexical scope of a frame. The returned Scope
	// must be closed by the caller. ErrNoScope means the frame has no debug
	// information.
	EnterScope(ctx context.Context, frame RawFrame) (Scope, error)
}

// Scope is an acquired symbol group for one frame.
type Scope interface {
	// Symbols enumerates the scope in engine order, arguments first.
	Symbols(ctx context.Context) ([]ScopeSymbol, error)

	// SymbolType resolves the type name of the i-th enumerated symbol.
	SymbolType(ctx context.Context, index int) (string, error)

	// SymbolValueText renders the value of the i-th enumerated symbol.
	SymbolValueText(ctx context.Context, index int) (string, error)

	// Close releases the engine handle. It is safe to call more than once.
	Close() error
}

// FaultReporter is implemented by backends that can describe why the
// debuggee stopped.
type FaultReporter interface {
	FaultReason(ctx context.Context) (string, error)
}
