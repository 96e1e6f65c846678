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

// File: backend/delve/delve.go
// Purpose: backend.Backend for Go programs served by a headless `dlv`
// instance (`dlv core`, `dlv attach` or `dlv exec` with --headless). The
// adapter speaks the version 2 JSON-RPC protocol and keeps delve's api types
// inside this package.

// Package delve adapts a headless delve server to the crashscope backend
// contract.
package delve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"

	"github.com/edespino/crashscope/backend"
)

const engineName = "delve"

// Stop reasons delve reports through the breakpoint of the current thread.
const (
	breakpointPanic      = "unrecovered-panic"
	breakpointFatalThrow = "runtime-fatal-throw"
)

// currentGoroutine asks delve for the selected goroutine.
const currentGoroutine int64 = -1

// rpcClient is the part of rpc2.RPCClient the adapter uses.
type rpcClient interface {
	GetState() (*api.DebuggerState, error)
	ListDynamicLibraries() ([]api.Image, error)
	Stacktrace(goroutineID int64, depth int, opts api.StacktraceOptions, cfg *api.LoadConfig) ([]api.Stackframe, error)
	ListFunctionArgs(scope api.EvalScope, cfg api.LoadConfig) ([]api.Variable, error)
	ListLocalVariables(scope api.EvalScope, cfg api.LoadConfig) ([]api.Variable, error)
	Disconnect(cont bool) error
}

var _ rpcClient = (*rpc2.RPCClient)(nil)

// variableLoadConfig bounds how much of each variable delve loads.
var variableLoadConfig = api.LoadConfig{
	FollowPointers:     true,
	MaxVariableRecurse: 1,
	MaxStringLen:       256,
	MaxArrayValues:     16,
	MaxStructFields:    -1,
}

// Backend talks to one headless delve server.
type Backend struct {
	addr   string
	client rpcClient
	logger *slog.Logger

	// frames is the last stacktrace, used to resolve addresses.
	frames []api.Stackframe
}

var (
	_ backend.Backend       = (*Backend)(nil)
	_ backend.FaultReporter = (*Backend)(nil)
)

// Option customizes a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for per-call debug output.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// Dial connects to the delve server listening on addr.
func Dial(ctx context.Context, addr string, opts ...Option) (*Backend, error) {
	var d net.Dialer
	if _, ok := ctx.Deadline(); !ok {
		d.Timeout = 10 * time.Second
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to delve at %s: %w: %v", addr, backend.ErrEngineUnavailable, err)
	}
	return newBackend(addr, rpc2.NewClientFromConn(conn), opts...), nil
}

func newBackend(addr string, client rpcClient, opts ...Option) *Backend {
	b := &Backend{
		addr:   addr,
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Target() backend.Target {
	return backend.Target{Engine: engineName, Address: b.addr}
}

// Close disconnects from the server and leaves the debuggee stopped.
func (b *Backend) Close() error {
	return b.client.Disconnect(false)
}

// wrap converts an RPC failure into the backend error vocabulary.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, net.ErrClosed), strings.Contains(msg, "connection is shut down"):
		return fmt.Errorf("%s: %w: %v", op, backend.ErrEngineUnavailable, err)
	case strings.Contains(msg, "has exited with status"):
		return backend.NewEngineError(op, "exited", err)
	}
	return backend.NewEngineError(op, "", err)
}

func (b *Backend) ListModules(ctx context.Context) ([]backend.ModuleInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	images, err := b.client.ListDynamicLibraries()
	if err != nil {
		return nil, wrap("list modules", err)
	}

	modules := make([]backend.ModuleInfo, 0, len(images))
	for _, img := range images {
		if img.LoadError != "" {
			b.logger.Debug("image failed to load", "path", img.Path, "error", img.LoadError)
		}
		modules = append(modules, backend.ModuleInfo{
			Name:         filepath.Base(img.Path),
			Path:         img.Path,
			Base:         img.Address,
			HasDebugInfo: img.LoadError == "",
		})
	}
	return modules, nil
}

func (b *Backend) CaptureStackTrace(ctx context.Context, maxDepth int) ([]backend.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		return nil, nil
	}

	// delve returns depth+1 frames.
	stack, err := b.client.Stacktrace(currentGoroutine, maxDepth-1, 0, nil)
	if err != nil {
		return nil, wrap("capture stack trace", err)
	}
	if len(stack) > maxDepth {
		stack = stack[:maxDepth]
	}
	b.frames = stack

	frames := make([]backend.RawFrame, 0, len(stack))
	for i, f := range stack {
		if f.Err != "" {
			return frames, backend.NewEngineError("capture stack trace", "unwind", errors.New(f.Err))
		}
		frames = append(frames, backend.RawFrame{Index: i, PC: f.PC, Hint: location(f)})
	}
	return frames, nil
}

func location(f api.Stackframe) backend.Location {
	loc := backend.Location{File: f.File, Line: f.Line}
	if f.Function != nil {
		loc.Function = f.Function.Name()
	}
	return loc
}

func (b *Backend) ResolveNameAndLine(ctx context.Context, pc uint64) (backend.Location, error) {
	if err := ctx.Err(); err != nil {
		return backend.Location{}, err
	}
	for _, f := range b.frames {
		if f.PC == pc {
			return location(f), nil
		}
	}
	return backend.Location{}, nil
}

func (b *Backend) EnterScope(ctx context.Context, frame backend.RawFrame) (backend.Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Index < len(b.frames) && b.frames[frame.Index].Function == nil {
		return nil, backend.ErrNoScope
	}

	scope := api.EvalScope{GoroutineID: currentGoroutine, Frame: frame.Index}
	args, err := b.client.ListFunctionArgs(scope, variableLoadConfig)
	if err != nil {
		return nil, b.scopeError(err)
	}
	locals, err := b.client.ListLocalVariables(scope, variableLoadConfig)
	if err != nil {
		return nil, b.scopeError(err)
	}

	s := &frameScope{kinds: make([]backend.SymbolKind, 0, len(args)+len(locals))}
	for _, v := range args {
		s.vars = append(s.vars, v)
		s.kinds = append(s.kinds, backend.KindArgument)
	}
	for _, v := range locals {
		s.vars = append(s.vars, v)
		s.kinds = append(s.kinds, backend.KindLocal)
	}
	return s, nil
}

// scopeError maps delve's "no debug info" answers to ErrNoScope.
func (b *Backend) scopeError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "could not find function") || strings.Contains(msg, "no debug info") {
		return backend.ErrNoScope
	}
	return wrap("enter scope", err)
}

func (b *Backend) FaultReason(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	state, err := b.client.GetState()
	if err != nil {
		return "", wrap("fault reason", err)
	}
	if state.Exited {
		return fmt.Sprintf("process exited with status %d", state.ExitStatus), nil
	}
	if th := state.CurrentThread; th != nil && th.Breakpoint != nil {
		switch th.Breakpoint.Name {
		case breakpointPanic:
			return "unrecovered panic", nil
		case breakpointFatalThrow:
			return "fatal runtime error", nil
		}
	}
	return "", nil
}
