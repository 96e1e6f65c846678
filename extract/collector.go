// File: extract/collector.go
package extract

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/edespino/crashscope/backend"
)

// collect returns the symbols of one frame in backend enumeration order,
// arguments first. A frame without debug information yields no symbols.
// The scope is released on every return path.
func (b *build) collect(ctx context.Context, frame Frame) ([]Symbol, error) {
	scope, err := b.be.EnterScope(ctx, frame.raw)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrNoScope):
			b.logger.Debug("no locals available", "frame", frame.Index)
			return nil, nil
		case hardFailure(ctx, err):
			return nil, err
		}
		b.degrade(fmt.Sprintf("frame %d: scope not entered: %v", frame.Index, err))
		b.logger.Warn("enter scope failed", "frame", frame.Index, "error", err)
		return nil, nil
	}
	defer func() {
		if err := scope.Close(); err != nil {
			b.logger.Debug("release scope", "frame", frame.Index, "error", err)
		}
	}()

	names, err := scope.Symbols(ctx)
	if err != nil {
		if hardFailure(ctx, err) {
			return nil, err
		}
		b.degrade(fmt.Sprintf("frame %d: symbols not enumerated: %v", frame.Index, err))
		return nil, nil
	}
	if len(names) > b.opts.MaxSymbols {
		b.truncate(fmt.Sprintf("frame %d: %d symbols cut to %d", frame.Index, len(names), b.opts.MaxSymbols))
		names = names[:b.opts.MaxSymbols]
	}

	symbols := make([]Symbol, 0, len(names))
	failed, capped := 0, 0
	for i, name := range names {
		sym := Symbol{Name: name.Name, Kind: name.Kind}

		typ, err := scope.SymbolType(ctx, i)
		if err != nil {
			if hardFailure(ctx, err) {
				return nil, err
			}
			typ, sym.Failed = "", true
			b.logger.Debug("symbol type unresolved", "frame", frame.Index, "symbol", name.Name, "error", err)
		}
		value, err := scope.SymbolValueText(ctx, i)
		if err != nil {
			if hardFailure(ctx, err) {
				return nil, err
			}
			value, sym.Failed = "", true
			b.logger.Debug("symbol value unresolved", "frame", frame.Index, "symbol", name.Name, "error", err)
		}

		var cutType, cutValue bool
		sym.Type, cutType = capText(typ, b.opts.MaxTextLen)
		sym.Value, cutValue = capText(value, b.opts.MaxTextLen)
		if cutType || cutValue {
			sym.Truncated = true
			capped++
		}

		if !b.spend(len(sym.Name) + len(sym.Type) + len(sym.Value)) {
			b.truncate(fmt.Sprintf("report text budget of %d bytes exhausted at frame %d", b.opts.MaxReportBytes, frame.Index))
			break
		}
		if sym.Failed {
			failed++
		}
		symbols = append(symbols, sym)
	}

	if capped > 0 {
		b.truncate(fmt.Sprintf("frame %d: %d symbol texts cut to %d bytes", frame.Index, capped, b.opts.MaxTextLen))
	}
	if failed > 0 {
		b.degrade(fmt.Sprintf("frame %d: %d symbols unresolved", frame.Index, failed))
	}
	return symbols, nil
}

// capText cuts s to at most limit bytes without splitting a rune.
func capText(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}
