// File: backend/gdb/scope.go
package gdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/edespino/crashscope/backend"
)

// scope holds the variables gdb printed for one frame. Types are fetched
// lazily in a single batch the first time one is asked for.
type scope struct {
	owner   *Backend
	frame   int
	entries []variable

	types       []string
	typeErrs    []error
	typesLoaded bool
	closed      bool
}

func (s *scope) Symbols(ctx context.Context) ([]backend.ScopeSymbol, error) {
	if s.closed {
		return nil, errScopeClosed
	}
	symbols := make([]backend.ScopeSymbol, len(s.entries))
	for i, e := range s.entries {
		symbols[i] = backend.ScopeSymbol{Name: e.Name, Kind: e.Kind}
	}
	return symbols, nil
}

func (s *scope) SymbolType(ctx context.Context, index int) (string, error) {
	if s.closed {
		return "", errScopeClosed
	}
	if index < 0 || index >= len(s.entries) {
		return "", fmt.Errorf("symbol %d: %w", index, backend.ErrSymbolUnresolved)
	}
	if !s.typesLoaded {
		if err := s.loadTypes(ctx); err != nil {
			return "", err
		}
	}
	return s.types[index], s.typeErrs[index]
}

func (s *scope) loadTypes(ctx context.Context) error {
	cmds := make([]string, 0, len(s.entries)+1)
	cmds = append(cmds, fmt.Sprintf("frame %d", s.frame))
	for _, e := range s.entries {
		cmds = append(cmds, "whatis "+e.Name)
	}

	_, out, err := s.owner.run(ctx, "resolve symbol types", cmds...)
	s.types = make([]string, len(s.entries))
	s.typeErrs = make([]error, len(s.entries))
	if err != nil {
		if backend.IsUnavailable(err) || ctx.Err() != nil {
			s.types, s.typeErrs = nil, nil
			return err
		}
		// A failed batch fails every type once; it is not retried per symbol.
		for i := range s.typeErrs {
			s.typeErrs[i] = err
		}
		s.typesLoaded = true
		return nil
	}

	for i, e := range s.entries {
		if typ, ok := parseWhatis(out[i+1]); ok {
			s.types[i] = typ
		} else {
			s.typeErrs[i] = fmt.Errorf("whatis %s: %w", e.Name, backend.ErrSymbolUnresolved)
		}
	}
	s.typesLoaded = true
	return nil
}

func (s *scope) SymbolValueText(ctx context.Context, index int) (string, error) {
	if s.closed {
		return "", errScopeClosed
	}
	if index < 0 || index >= len(s.entries) {
		return "", fmt.Errorf("symbol %d: %w", index, backend.ErrSymbolUnresolved)
	}
	e := s.entries[index]
	if unreadableValue(e.Value) {
		return "", fmt.Errorf("%s is %s: %w", e.Name, e.Value, backend.ErrSymbolUnresolved)
	}
	return e.Value, nil
}

func (s *scope) Close() error {
	s.closed = true
	s.entries, s.types, s.typeErrs = nil, nil, nil
	return nil
}

var errScopeClosed = backend.NewEngineError("read scope", "", errors.New("scope already released"))
