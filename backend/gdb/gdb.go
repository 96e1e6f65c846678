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

// File: backend/gdb/gdb.go
// Purpose: backend.Backend on top of `gdb --batch`. Every capability call runs
// one batch invocation against the program and its core file (or a live pid)
// and parses the textual output. gdb keeps no state between calls, so the
// adapter memoizes what it learned from the backtrace for later lookups.

// Package gdb adapts the GNU debugger to the crashscope backend contract.
package gdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/edespino/crashscope/backend"
)

const engineName = "gdb"

// sectionMarker delimits the output of individual commands in one batch run.
const sectionMarker = "@@crashscope@@"

// Config selects the debuggee.
type Config struct {
	// GDBPath is the gdb executable, "gdb" when empty.
	GDBPath string
	// Program is the executable that produced the core or runs as PID.
	Program string
	// Core is the core file. Exactly one of Core and PID must be set.
	Core string
	PID  int
	// SourceDir is added with `directory` when set.
	SourceDir string
}

// Backend drives gdb in batch mode.
type Backend struct {
	cfg    Config
	exec   Commander
	logger *slog.Logger
}

var (
	_ backend.Backend       = (*Backend)(nil)
	_ backend.FaultReporter = (*Backend)(nil)
)

// Option customizes a Backend.
type Option func(*Backend)

// WithCommander replaces the command executor, mainly for tests.
func WithCommander(c Commander) Option {
	return func(b *Backend) { b.exec = c }
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// New validates cfg and returns a gdb backend.
func New(cfg Config, opts ...Option) (*Backend, error) {
	if cfg.Core == "" && cfg.PID == 0 {
		return nil, fmt.Errorf("gdb backend needs a core file or a pid")
	}
	if cfg.Core != "" && cfg.PID != 0 {
		return nil, fmt.Errorf("gdb backend takes a core file or a pid, not both")
	}
	if cfg.GDBPath == "" {
		cfg.GDBPath = "gdb"
	}

	b := &Backend{
		cfg:    cfg,
		exec:   RealCommander{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Backend) Target() backend.Target {
	return backend.Target{
		Engine:  engineName,
		Program: b.cfg.Program,
		Core:    b.cfg.Core,
		PID:     b.cfg.PID,
	}
}

// batchArgs builds the gdb command line for the given commands. Each command
// is preceded by a marker so its output can be told apart.
func (b *Backend) batchArgs(cmds []string) []string {
	args := []string{"-nx", "--batch",
		"-ex", "set pagination off",
		"-ex", "set width 0",
		"-ex", "set print pretty off",
		"-ex", "set print frame-info location-and-address",
	}
	if b.cfg.SourceDir != "" && dirExists(b.cfg.SourceDir) {
		args = append(args, "-ex", "directory "+b.cfg.SourceDir)
	}
	for i, cmd := range cmds {
		args = append(args, "-ex", fmt.Sprintf(`echo %s%d\n`, sectionMarker, i), "-ex", cmd)
	}
	if b.cfg.Program != "" {
		args = append(args, b.cfg.Program)
	}
	if b.cfg.Core != "" {
		args = append(args, b.cfg.Core)
	} else {
		args = append(args, "-p", strconv.Itoa(b.cfg.PID))
	}
	return args
}

// run executes cmds in one gdb batch and returns the output of each command
// in order, plus everything gdb printed before the first command.
func (b *Backend) run(ctx context.Context, op string, cmds ...string) (string, []string, error) {
	args := b.batchArgs(cmds)
	b.logger.Debug("running gdb", "op", op, "commands", cmds)

	output, err := b.exec.Execute(ctx, b.cfg.GDBPath, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", nil, backend.NewEngineError(op, "canceled", ctxErr)
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("%s: %w: %v", op, backend.ErrEngineUnavailable, err)
		}
		// gdb --batch exits non-zero when the last command failed; the
		// output is still worth parsing.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", nil, backend.NewEngineError(op, "", err)
		}
		b.logger.Debug("gdb exited with error", "op", op, "code", exitErr.ExitCode())
	}

	preamble, sections := splitSections(string(output), len(cmds))
	if isDetached(preamble, b.cfg.Core) {
		return preamble, sections, fmt.Errorf("%s: %w", op, backend.ErrEngineUnavailable)
	}
	return preamble, sections, nil
}

// splitSections cuts batch output at the markers emitted by batchArgs.
func splitSections(output string, n int) (string, []string) {
	sections := make([]string, n)
	preamble := output
	for i := n - 1; i >= 0; i-- {
		marker := fmt.Sprintf("%s%d\n", sectionMarker, i)
		idx := strings.LastIndex(preamble, marker)
		if idx < 0 {
			continue
		}
		sections[i] = strings.TrimRight(preamble[idx+len(marker):], "\n")
		preamble = preamble[:idx]
	}
	return preamble, sections
}

// isDetached reports whether gdb could not load the core or attach to the pid.
func isDetached(preamble, core string) bool {
	for _, line := range strings.Split(preamble, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case core != "" && strings.HasPrefix(line, core+":") && strings.HasSuffix(line, "No such file or directory."):
			return true
		case strings.Contains(line, "is not a core dump"):
			return true
		case strings.HasPrefix(line, "ptrace: "), strings.HasPrefix(line, "Could not attach to process"):
			return true
		}
	}
	return false
}

// dirExists checks if directory exists
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (b *Backend) ListModules(ctx context.Context) ([]backend.ModuleInfo, error) {
	preamble, out, err := b.run(ctx, "list modules", "info files", "info sharedlibrary")
	if err != nil {
		return nil, err
	}

	var modules []backend.ModuleInfo
	if exe, ok := parseExecutable(out[0], preamble, b.cfg.Program); ok {
		modules = append(modules, exe)
	}
	modules = append(modules, parseSharedLibraries(out[1])...)
	return modules, nil
}

func (b *Backend) CaptureStackTrace(ctx context.Context, maxDepth int) ([]backend.RawFrame, error) {
	_, out, err := b.run(ctx, "capture stack trace", fmt.Sprintf("backtrace %d", maxDepth))
	if err != nil {
		return nil, err
	}

	trace := parseBacktrace(out[0])
	if trace.noStack {
		return nil, fmt.Errorf("capture stack trace: %w", backend.ErrEngineUnavailable)
	}

	frames := make([]backend.RawFrame, 0, len(trace.frames))
	for _, f := range trace.frames {
		if len(frames) == maxDepth {
			break
		}
		frames = append(frames, backend.RawFrame{Index: f.Index, PC: f.PC, Hint: f.Location})
	}

	if trace.stopped != "" {
		return frames, backend.NewEngineError("capture stack trace", "backtrace-stopped", errors.New(trace.stopped))
	}
	return frames, nil
}

func (b *Backend) ResolveNameAndLine(ctx context.Context, pc uint64) (backend.Location, error) {
	if pc == 0 {
		return backend.Location{}, nil
	}

	addr := fmt.Sprintf("0x%x", pc)
	_, out, err := b.run(ctx, "resolve "+addr, "info symbol "+addr, "info line *"+addr)
	if err != nil {
		return backend.Location{}, err
	}

	return parseInfoSymbol(out[0]).Merge(parseInfoLine(out[1])), nil
}

func (b *Backend) EnterScope(ctx context.Context, frame backend.RawFrame) (backend.Scope, error) {
	selectFrame := fmt.Sprintf("frame %d", frame.Index)
	_, out, err := b.run(ctx, "enter scope", selectFrame, "info args", "info locals")
	if err != nil {
		return nil, err
	}

	if msg, ok := frameSelectError(out[0]); ok {
		return nil, backend.NewEngineError("enter scope", "no-frame", errors.New(msg))
	}

	args, argsOK := parseVariables(out[1], backend.KindArgument)
	locals, localsOK := parseVariables(out[2], backend.KindLocal)
	if !argsOK && !localsOK {
		return nil, backend.ErrNoScope
	}

	return &scope{
		owner:   b,
		frame:   frame.Index,
		entries: append(args, locals...),
	}, nil
}

func (b *Backend) FaultReason(ctx context.Context) (string, error) {
	preamble, out, err := b.run(ctx, "fault reason", "print $_siginfo")
	if err != nil {
		return "", err
	}

	if info, ok := parseSignalInfo(out[0]); ok {
		return info.String(), nil
	}
	if info, ok := parseTerminationSignal(preamble); ok {
		return info.String(), nil
	}
	if b.cfg.Core != "" {
		// A core without recorded signal information most likely came
		// from a segmentation fault.
		return "SIGSEGV", nil
	}
	return "", nil
}
