// File: backend/snapshot/backend.go
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/edespino/crashscope/backend"
)

// Backend replays a Snapshot.
type Backend struct {
	snap   *Snapshot
	path   string
	opened int
	closed int
}

var (
	_ backend.Backend       = (*Backend)(nil)
	_ backend.FaultReporter = (*Backend)(nil)
)

// New returns a backend replaying snap. path is only used for the target
// identity and may be empty.
func New(snap *Snapshot, path string) *Backend {
	return &Backend{snap: snap, path: path}
}

// Open loads the snapshot at path and returns a backend replaying it.
func Open(path string) (*Backend, error) {
	snap, err := Load(path)
	if err != nil {
		return nil, err
	}
	return New(snap, path), nil
}

// OpenScopes returns the number of scopes entered but not yet closed.
func (b *Backend) OpenScopes() int {
	return b.opened - b.closed
}

// ScopesEntered returns how many scopes were acquired in total.
func (b *Backend) ScopesEntered() int {
	return b.opened
}

func (b *Backend) Target() backend.Target {
	engine := "snapshot"
	if b.snap.Engine != "" {
		engine = "snapshot(" + b.snap.Engine + ")"
	}
	return backend.Target{Engine: engine, Program: b.snap.Program, Core: b.path}
}

func (b *Backend) FaultReason(ctx context.Context) (string, error) {
	if b.snap.Unavailable {
		return "", backend.ErrEngineUnavailable
	}
	return b.snap.Fault, nil
}

func (b *Backend) ListModules(ctx context.Context) ([]backend.ModuleInfo, error) {
	if b.snap.Unavailable {
		return nil, backend.ErrEngineUnavailable
	}
	if b.snap.ModulesError != "" {
		return nil, backend.NewEngineError("list modules", "", errors.New(b.snap.ModulesError))
	}

	modules := make([]backend.ModuleInfo, 0, len(b.snap.Modules))
	for _, m := range b.snap.Modules {
		modules = append(modules, backend.ModuleInfo{
			Name:         m.Name,
			Path:         m.Path,
			Base:         m.Base,
			HasDebugInfo: m.DebugInfo,
		})
	}
	return modules, nil
}

func (b *Backend) CaptureStackTrace(ctx context.Context, maxDepth int) ([]backend.RawFrame, error) {
	if b.snap.Unavailable {
		return nil, backend.ErrEngineUnavailable
	}

	limit := len(b.snap.Frames)
	if maxDepth < limit {
		limit = maxDepth
	}

	var failure error
	if b.snap.StackError != "" && b.snap.StackErrorAfter <= limit {
		limit = b.snap.StackErrorAfter
		failure = backend.NewEngineError("capture stack trace", "", errors.New(b.snap.StackError))
	}

	frames := make([]backend.RawFrame, 0, limit)
	for i := 0; i < limit; i++ {
		f := b.snap.Frames[i]
		frames = append(frames, backend.RawFrame{
			Index: i,
			PC:    f.PC,
			Hint:  backend.Location{Function: f.Function, File: f.File, Line: f.Line},
		})
	}
	return frames, failure
}

func (b *Backend) ResolveNameAndLine(ctx context.Context, pc uint64) (backend.Location, error) {
	if b.snap.Unavailable {
		return backend.Location{}, backend.ErrEngineUnavailable
	}
	for _, f := range b.snap.Frames {
		if f.PC == pc {
			return backend.Location{Function: f.Function, File: f.File, Line: f.Line}, nil
		}
	}
	return backend.Location{}, nil
}

func (b *Backend) EnterScope(ctx context.Context, frame backend.RawFrame) (backend.Scope, error) {
	if b.snap.Unavailable {
		return nil, backend.ErrEngineUnavailable
	}
	if frame.Index < 0 || frame.Index >= len(b.snap.Frames) {
		return nil, backend.NewEngineError("enter scope", "", fmt.Errorf("no frame %d", frame.Index))
	}

	f := b.snap.Frames[frame.Index]
	if f.NoScope {
		return nil, backend.ErrNoScope
	}
	if f.ScopeError != "" {
		return nil, backend.NewEngineError("enter scope", "", errors.New(f.ScopeError))
	}

	b.opened++
	return &scope{owner: b, symbols: f.Symbols}, nil
}

// scope is the replayed symbol group of one frame.
type scope struct {
	owner   *Backend
	symbols []Symbol
	closed  bool
}

func (s *scope) Symbols(ctx context.Context) ([]backend.ScopeSymbol, error) {
	if s.closed {
		return nil, backend.NewEngineError("enumerate scope", "", errors.New("scope released"))
	}
	names := make([]backend.ScopeSymbol, 0, len(s.symbols))
	for _, sym := range s.symbols {
		kind := backend.KindLocal
		if sym.Kind == string(backend.KindArgument) {
			kind = backend.KindArgument
		}
		names = append(names, backend.ScopeSymbol{Name: sym.Name, Kind: kind})
	}
	return names, nil
}

func (s *scope) symbol(index int) (Symbol, error) {
	if s.closed {
		return Symbol{}, backend.NewEngineError("read symbol", "", errors.New("scope released"))
	}
	if index < 0 || index >= len(s.symbols) {
		return Symbol{}, fmt.Errorf("symbol %d: %w", index, backend.ErrSymbolUnresolved)
	}
	return s.symbols[index], nil
}

func (s *scope) SymbolType(ctx context.Context, index int) (string, error) {
	sym, err := s.symbol(index)
	if err != nil {
		return "", err
	}
	if sym.TypeError {
		return "", fmt.Errorf("type of %s: %w", sym.Name, backend.ErrSymbolUnresolved)
	}
	return sym.Type, nil
}

func (s *scope) SymbolValueText(ctx context.Context, index int) (string, error) {
	sym, err := s.symbol(index)
	if err != nil {
		return "", err
	}
	if sym.ValueError {
		return "", fmt.Errorf("value of %s: %w", sym.Name, backend.ErrSymbolUnresolved)
	}
	return sym.Value, nil
}

func (s *scope) Close() error {
	if !s.closed {
		s.closed = true
		s.owner.closed++
	}
	return nil
}
