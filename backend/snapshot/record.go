// File: backend/snapshot/record.go
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/edespino/crashscope/backend"
)

// Record walks a live backend and captures everything needed to replay it.
// Per-frame and per-symbol failures are recorded as injected faults so that
// the replay reproduces them. Only ErrEngineUnavailable aborts the recording.
func Record(ctx context.Context, b backend.Backend, maxDepth int) (*Snapshot, error) {
	target := b.Target()
	snap := &Snapshot{
		Engine:  target.Engine,
		Program: target.Program,
	}

	if fr, ok := b.(backend.FaultReporter); ok {
		if reason, err := fr.FaultReason(ctx); err == nil {
			snap.Fault = reason
		}
	}

	modules, err := b.ListModules(ctx)
	if err != nil {
		if backend.IsUnavailable(err) {
			return nil, err
		}
		snap.ModulesError = err.Error()
	}
	for _, m := range modules {
		snap.Modules = append(snap.Modules, Module{
			Name:      m.Name,
			Path:      m.Path,
			Base:      m.Base,
			DebugInfo: m.HasDebugInfo,
		})
	}

	raw, err := b.CaptureStackTrace(ctx, maxDepth)
	if err != nil {
		if backend.IsUnavailable(err) {
			return nil, err
		}
		snap.StackError = err.Error()
		snap.StackErrorAfter = len(raw)
	}

	for _, rf := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := recordFrame(ctx, b, rf)
		if err != nil {
			return nil, err
		}
		snap.Frames = append(snap.Frames, frame)
	}

	return snap, nil
}

func recordFrame(ctx context.Context, b backend.Backend, rf backend.RawFrame) (Frame, error) {
	frame := Frame{PC: rf.PC}

	loc := rf.Hint
	if !loc.Complete() && rf.PC != 0 {
		resolved, err := b.ResolveNameAndLine(ctx, rf.PC)
		if backend.IsUnavailable(err) {
			return frame, err
		}
		if err == nil {
			loc = loc.Merge(resolved)
		}
	}
	frame.Function, frame.File, frame.Line = loc.Function, loc.File, loc.Line

	sc, err := b.EnterScope(ctx, rf)
	switch {
	case errors.Is(err, backend.ErrNoScope):
		frame.NoScope = true
		return frame, nil
	case backend.IsUnavailable(err):
		return frame, err
	case err != nil:
		frame.ScopeError = err.Error()
		return frame, nil
	}
	defer sc.Close()

	names, err := sc.Symbols(ctx)
	if err != nil {
		if backend.IsUnavailable(err) {
			return frame, err
		}
		frame.ScopeError = fmt.Sprintf("enumerate: %v", err)
		return frame, nil
	}

	for i, n := range names {
		sym := Symbol{Name: n.Name, Kind: string(n.Kind)}
		if typ, err := sc.SymbolType(ctx, i); err != nil {
			sym.TypeError = true
		} else {
			sym.Type = typ
		}
		if val, err := sc.SymbolValueText(ctx, i); err != nil {
			sym.ValueError = true
		} else {
			sym.Value = val
		}
		frame.Symbols = append(frame.Symbols, sym)
	}
	return frame, nil
}
