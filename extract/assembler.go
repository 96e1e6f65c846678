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

// File: extract/assembler.go
// Purpose: Builds a CrashReport from a debug session. The build identifies
// the primary module, walks the stack, collects the symbols of every frame
// and folds everything into one bounded report. Missing information makes
// the report degraded; only an unreachable engine or an abandoned build
// makes it fail.

// Package extract assembles crash reports from a backend.Backend.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/edespino/crashscope/backend"
)

// build is the state of one report build.
type build struct {
	be       backend.Backend
	target   backend.Target
	opts     Options
	logger   *slog.Logger
	resolver *resolver

	degraded  bool
	truncated bool
	notes     []string

	budget              int
	exhausted           bool
	framesWithoutSource int
}

func (b *build) degrade(note string) {
	b.degraded = true
	b.notes = append(b.notes, note)
}

func (b *build) truncate(note string) {
	b.truncated = true
	b.notes = append(b.notes, note)
}

// spend takes n bytes from the text budget. It reports false, and marks the
// budget exhausted, when n does not fit.
func (b *build) spend(n int) bool {
	if b.exhausted || n > b.budget {
		b.exhausted = true
		return false
	}
	b.budget -= n
	return true
}

// Assemble builds the crash report of the session. It returns a complete,
// possibly degraded or truncated, report, or an error and no report when
// the engine is unreachable, the session is busy or ctx ends first.
func Assemble(ctx context.Context, s *Session, opts Options) (*CrashReport, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	opts = opts.withDefaults()
	target := s.Target()
	trigger := s.Trigger()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "extract.Assemble",
		trace.WithAttributes(
			attribute.String("engine", target.Engine),
			attribute.String("target", target.String()),
			attribute.String("reason", string(trigger.Reason)),
			attribute.Int("max_depth", opts.MaxDepth),
		),
	)
	defer span.End()

	start := time.Now()
	b := &build{
		be:       s.backend,
		target:   target,
		opts:     opts,
		logger:   opts.Logger.With("target", target.String()),
		resolver: newResolver(s.backend),
		budget:   opts.MaxReportBytes,
	}
	b.logger.Info("building crash report", "reason", trigger.Reason)

	report, err := b.assemble(ctx, trigger)
	recordBuild(report, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Warn("crash report build failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("frames", len(report.Frames)),
		attribute.Bool("degraded", report.Degraded),
		attribute.Bool("truncated", report.Truncated),
	)
	span.SetStatus(codes.Ok, "")
	b.logger.Info("crash report built",
		"id", report.ID,
		"frames", len(report.Frames),
		"degraded", report.Degraded,
		"truncated", report.Truncated,
		"duration", time.Since(start),
	)
	return report, nil
}

func (b *build) assemble(ctx context.Context, trigger Trigger) (*CrashReport, error) {
	fault, err := b.faultReason(ctx, trigger)
	if err != nil {
		return nil, err
	}

	var moduleName string
	module, err := b.resolver.identifyPrimaryModule(ctx)
	switch {
	case err == nil:
		moduleName = module.Name
		if !module.HasDebugInfo {
			b.degrade(fmt.Sprintf("module %s has no debug information", module.Name))
		}
	case errors.Is(err, ErrNoModule):
		b.degrade("no module loaded")
	case hardFailure(ctx, err):
		return nil, fmt.Errorf("list modules: %w", err)
	default:
		b.degrade(fmt.Sprintf("module list unavailable: %v", err))
		b.logger.Warn("list modules failed", "error", err)
	}

	frames, err := b.walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("walk stack: %w", err)
	}

	for i := range frames {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build abandoned at frame %d: %w", i, err)
		}
		if b.exhausted {
			break
		}
		frameCtx, span := otel.Tracer(tracerName).Start(ctx, "extract.collect",
			trace.WithAttributes(attribute.Int("frame", i)),
		)
		symbols, err := b.collect(frameCtx, frames[i])
		span.SetAttributes(attribute.Int("symbols", len(symbols)))
		span.End()
		if err != nil {
			return nil, fmt.Errorf("collect frame %d: %w", i, err)
		}
		frames[i].Symbols = symbols
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build abandoned: %w", err)
	}

	b.attachSource(frames)

	report := &CrashReport{
		ID:      uuid.NewString(),
		Created: time.Now().UTC(),
		Target:  b.target,
		Reason:  trigger.Reason,
		Fault:   fault,
		Module:  moduleName,
		Frames:  frames,
	}
	if b.framesWithoutSource == len(frames) {
		report.Advisory = AdvisoryNoDebugInfo
		if len(frames) == 0 {
			b.degrade("no frames captured")
		}
	}
	report.Degraded = b.degraded
	report.Truncated = b.truncated
	report.Notes = b.notes
	return report, nil
}

// faultReason prefers the fault given by the trigger and otherwise asks the
// backend, when it can describe the stop.
func (b *build) faultReason(ctx context.Context, trigger Trigger) (string, error) {
	if trigger.Fault != "" || trigger.Reason != ReasonFault {
		return trigger.Fault, nil
	}
	reporter, ok := b.be.(backend.FaultReporter)
	if !ok {
		return "", nil
	}
	fault, err := reporter.FaultReason(ctx)
	if err != nil {
		if hardFailure(ctx, err) {
			return "", fmt.Errorf("fault reason: %w", err)
		}
		b.logger.Debug("fault reason unavailable", "error", err)
		return "", nil
	}
	return fault, nil
}
