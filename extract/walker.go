// File: extract/walker.go
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/edespino/crashscope/backend"
)

// walk captures up to MaxDepth frames and resolves their locations,
// innermost first. Ordinals follow walk order. Frames the backend returned
// before failing are kept.
func (b *build) walk(ctx context.Context) ([]Frame, error) {
	raw, err := b.be.CaptureStackTrace(ctx, b.opts.MaxDepth)
	if err != nil {
		if hardFailure(ctx, err) {
			return nil, err
		}
		b.degrade(fmt.Sprintf("stack capture stopped after %d frames: %v", len(raw), err))
		b.logger.Warn("stack capture failed", "target", b.target, "frames", len(raw), "error", err)
	}
	if len(raw) > b.opts.MaxDepth {
		raw = raw[:b.opts.MaxDepth]
	}

	frames := make([]Frame, 0, len(raw))
	for i, rf := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame := Frame{Index: i, PC: rf.PC, raw: rf}
		loc := rf.Hint
		// The unwinder's own location wins; inlined frames share their
		// caller's pc, so only the missing fields come from the address.
		if !loc.Complete() && rf.PC != 0 {
			resolved, err := b.resolver.resolve(ctx, rf.PC)
			switch {
			case err == nil:
				loc = loc.Merge(resolved)
			case hardFailure(ctx, err):
				return nil, err
			default:
				b.degrade(fmt.Sprintf("frame %d: address 0x%x not resolved: %v", i, rf.PC, err))
				b.logger.Debug("resolve failed", "frame", i, "pc", rf.PC, "error", err)
			}
		}
		frame.Function, frame.File, frame.Line = loc.Function, loc.File, loc.Line

		if mod, ok := b.resolver.moduleFor(ctx, rf.PC); ok {
			frame.Module = mod.Name
		}
		if !frame.HasSource() {
			b.framesWithoutSource++
		}
		frames = append(frames, frame)
	}

	if b.framesWithoutSource > 0 {
		b.degrade(fmt.Sprintf("%d of %d frames have no source location", b.framesWithoutSource, len(frames)))
	}
	if len(frames) == b.opts.MaxDepth {
		b.truncate(fmt.Sprintf("stack cut at %d frames", b.opts.MaxDepth))
	}
	return frames, nil
}

// hardFailure reports whether err must end the build without a report.
func hardFailure(ctx context.Context, err error) bool {
	return errors.Is(err, backend.ErrEngineUnavailable) || ctx.Err() != nil
}
