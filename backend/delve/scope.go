// File: backend/delve/scope.go
package delve

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-delve/delve/service/api"

	"github.com/edespino/crashscope/backend"
)

// frameScope holds the variables delve loaded for one frame.
type frameScope struct {
	vars   []api.Variable
	kinds  []backend.SymbolKind
	closed bool
}

var errScopeClosed = backend.NewEngineError("read scope", "", errors.New("scope already released"))

func (s *frameScope) Symbols(ctx context.Context) ([]backend.ScopeSymbol, error) {
	if s.closed {
		return nil, errScopeClosed
	}
	symbols := make([]backend.ScopeSymbol, len(s.vars))
	for i, v := range s.vars {
		symbols[i] = backend.ScopeSymbol{Name: v.Name, Kind: s.kinds[i]}
	}
	return symbols, nil
}

func (s *frameScope) variable(index int) (*api.Variable, error) {
	if s.closed {
		return nil, errScopeClosed
	}
	if index < 0 || index >= len(s.vars) {
		return nil, fmt.Errorf("symbol %d: %w", index, backend.ErrSymbolUnresolved)
	}
	return &s.vars[index], nil
}

func (s *frameScope) SymbolType(ctx context.Context, index int) (string, error) {
	v, err := s.variable(index)
	if err != nil {
		return "", err
	}
	if v.Type == "" {
		return "", fmt.Errorf("type of %s: %w", v.Name, backend.ErrSymbolUnresolved)
	}
	return v.Type, nil
}

func (s *frameScope) SymbolValueText(ctx context.Context, index int) (string, error) {
	v, err := s.variable(index)
	if err != nil {
		return "", err
	}
	if v.Unreadable != "" {
		return "", fmt.Errorf("%s unreadable: %s: %w", v.Name, v.Unreadable, backend.ErrSymbolUnresolved)
	}
	return v.SinglelineString(), nil
}

func (s *frameScope) Close() error {
	s.closed = true
	s.vars, s.kinds = nil, nil
	return nil
}
