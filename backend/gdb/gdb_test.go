// File: backend/gdb/gdb_test.go
package gdb

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edespino/crashscope/backend"
)

// Mock command executor for testing
type MockCommander struct {
	Outputs []string
	Errors  []error
	index   int
	cmds    []string
}

func (m *MockCommander) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	// Record the command
	m.cmds = append(m.cmds, name+" "+strings.Join(args, " "))

	if m.index >= len(m.Outputs) {
		return nil, fmt.Errorf("unexpected call %d", m.index)
	}
	output := m.Outputs[m.index]
	var err error
	if m.index < len(m.Errors) {
		err = m.Errors[m.index]
	}
	m.index++
	return []byte(output), err
}

func (m *MockCommander) GetCommands() []string {
	return m.cmds
}

// batchOutput renders what gdb prints for a marked batch run.
func batchOutput(preamble string, sections ...string) string {
	var b strings.Builder
	b.WriteString(preamble)
	for i, s := range sections {
		fmt.Fprintf(&b, "%s%d\n%s\n", sectionMarker, i, s)
	}
	return b.String()
}

func newTestBackend(t *testing.T, mock *MockCommander) *Backend {
	t.Helper()
	b, err := New(Config{Program: "/opt/app/bin/crasher", Core: "/tmp/core.1234"}, WithCommander(mock))
	require.NoError(t, err)
	return b
}

func TestNewValidatesTarget(t *testing.T) {
	_, err := New(Config{Program: "/bin/app"})
	assert.Error(t, err)

	_, err = New(Config{Program: "/bin/app", Core: "core", PID: 12})
	assert.Error(t, err)

	b, err := New(Config{PID: 12})
	require.NoError(t, err)
	assert.Equal(t, backend.Target{Engine: "gdb", PID: 12}, b.Target())
}

func TestBatchArgs(t *testing.T) {
	b, err := New(Config{Program: "/bin/app", PID: 99})
	require.NoError(t, err)

	args := b.batchArgs([]string{"info locals"})
	joined := strings.Join(args, " ")
	assert.True(t, strings.HasPrefix(joined, "-nx --batch"))
	assert.Contains(t, joined, `-ex echo @@crashscope@@0\n -ex info locals`)
	assert.True(t, strings.HasSuffix(joined, "/bin/app -p 99"))
}

func TestListModules(t *testing.T) {
	mock := &MockCommander{
		Outputs: []string{batchOutput("",
			`Symbols from "/opt/app/bin/crasher".
	0x0000000000400318 - 0x0000000000400334 is .interp`,
			`From                To                  Syms Read   Shared Object Library
0x00007ffff7dab700  0x00007ffff7f3d93d  Yes (*)     /lib64/libc.so.6`,
		)},
	}
	b := newTestBackend(t, mock)

	modules, err := b.ListModules(context.Background())
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "crasher", modules[0].Name)
	assert.True(t, modules[0].HasDebugInfo)
	assert.Equal(t, "libc.so.6", modules[1].Name)
	assert.False(t, modules[1].HasDebugInfo)

	cmds := mock.GetCommands()
	require.Len(t, cmds, 1)
	assert.True(t, strings.HasSuffix(cmds[0], "/opt/app/bin/crasher /tmp/core.1234"))
}

func TestListModulesMissingCore(t *testing.T) {
	mock := &MockCommander{
		Outputs: []string{batchOutput("/tmp/core.1234: No such file or directory.\n", "", "No shared libraries loaded at this time.")},
		Errors:  []error{nil},
	}
	_, err := newTestBackend(t, mock).ListModules(context.Background())
	assert.True(t, backend.IsUnavailable(err))
}

func TestGDBNotInstalled(t *testing.T) {
	mock := &MockCommander{
		Outputs: []string{""},
		Errors:  []error{&exec.Error{Name: "gdb", Err: exec.ErrNotFound}},
	}
	_, err := newTestBackend(t, mock).CaptureStackTrace(context.Background(), 20)
	assert.True(t, backend.IsUnavailable(err))
}

func TestCaptureStackTrace(t *testing.T) {
	tests := []struct {
		name          string
		output        string
		maxDepth      int
		expectFrames  int
		expectEngine  bool
		expectNoStack bool
	}{
		{
			name: "complete stack",
			output: batchOutput("", `#0  0x0000555555555139 in deref (p=0x0) at crash.c:5
#1  0x000055555555515e in main () at crash.c:11`),
			maxDepth:     20,
			expectFrames: 2,
		},
		{
			name: "truncated by depth",
			output: batchOutput("", `#0  0x0000555555555139 in recurse (n=1) at stack.c:3
#1  0x0000555555555150 in recurse (n=2) at stack.c:4
(More stack frames follow...)`),
			maxDepth:     2,
			expectFrames: 2,
		},
		{
			name: "unwinder gave up",
			output: batchOutput("", `#0  0x0000555555555139 in recurse (n=1) at stack.c:3
#1  0x0000555555555150 in recurse (n=2) at stack.c:4
Backtrace stopped: previous frame inner to this frame (corrupt stack?)`),
			maxDepth:     20,
			expectFrames: 2,
			expectEngine: true,
		},
		{
			name:          "nothing to unwind",
			output:        batchOutput("", "No stack."),
			maxDepth:      20,
			expectNoStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockCommander{Outputs: []string{tt.output}}
			b := newTestBackend(t, mock)

			frames, err := b.CaptureStackTrace(context.Background(), tt.maxDepth)
			assert.Len(t, frames, tt.expectFrames)

			switch {
			case tt.expectNoStack:
				assert.True(t, backend.IsUnavailable(err))
			case tt.expectEngine:
				assert.True(t, errors.Is(err, backend.ErrEngine))
			default:
				assert.NoError(t, err)
			}

			for i, f := range frames {
				assert.Equal(t, i, f.Index)
			}
			assert.Contains(t, mock.GetCommands()[0], fmt.Sprintf("backtrace %d", tt.maxDepth))
		})
	}
}

func TestCaptureStackTraceKeepsFrameHints(t *testing.T) {
	mock := &MockCommander{
		Outputs: []string{
			batchOutput("", `#0  0x0000555555555131 in inner (p=0x0) at crash.c:5
#1  0x0000555555555131 in outer (p=0x0) at crash.c:10
#2  <signal handler called>
#3  main () at crash.c:15
#4  0x00007ffff7dd4d90 in __libc_start_call_main () from /lib64/libc.so.6`),
		},
	}
	b := newTestBackend(t, mock)

	frames, err := b.CaptureStackTrace(context.Background(), 20)
	require.NoError(t, err)

	expected := []backend.RawFrame{
		{Index: 0, PC: 0x555555555131, Hint: backend.Location{Function: "inner", File: "crash.c", Line: 5}},
		{Index: 1, PC: 0x555555555131, Hint: backend.Location{Function: "outer", File: "crash.c", Line: 10}},
		{Index: 2, Hint: backend.Location{Function: "<signal handler called>"}},
		{Index: 3, Hint: backend.Location{Function: "main", File: "crash.c", Line: 15}},
		{Index: 4, PC: 0x7ffff7dd4d90, Hint: backend.Location{Function: "__libc_start_call_main"}},
	}
	assert.Equal(t, expected, frames)
	assert.Len(t, mock.GetCommands(), 1)
}

func TestResolveNameAndLine(t *testing.T) {
	mock := &MockCommander{
		Outputs: []string{
			batchOutput("",
				"__libc_start_call_main + 128 in section .text of /lib64/libc.so.6",
				"No line number information available for address 0x7ffff7dd4d90 <__libc_start_call_main+128>"),
			batchOutput("",
				"deref + 9 in section .text",
				`Line 5 of "crash.c" starts at address 0x555555555135 <deref+8> and ends at 0x55555555513c <deref+15>.`),
		},
	}
	b := newTestBackend(t, mock)
	ctx := context.Background()

	loc, err := b.ResolveNameAndLine(ctx, 0x7ffff7dd4d90)
	require.NoError(t, err)
	assert.Equal(t, backend.Location{Function: "__libc_start_call_main"}, loc)
	assert.Contains(t, mock.GetCommands()[0], "info line *0x7ffff7dd4d90")

	loc, err = b.ResolveNameAndLine(ctx, 0x555555555139)
	require.NoError(t, err)
	assert.Equal(t, backend.Location{Function: "deref", File: "crash.c", Line: 5}, loc)

	loc, err = b.ResolveNameAndLine(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, backend.Location{}, loc)
	assert.Len(t, mock.GetCommands(), 2, "pc 0 never reaches gdb")
}

func TestEnterScope(t *testing.T) {
	mock := &MockCommander{
		Outputs: []string{
			batchOutput("",
				"#1  0x000055555555515e in process (n=3, buf=0x0) at crash.c:20\n20\t  deref(buf);",
				"n = 3\nbuf = 0x0",
				"total = <optimized out>\nlabel = 0x402010 \"fault\""),
			batchOutput("",
				"#1  0x000055555555515e in process (n=3, buf=0x0) at crash.c:20",
				"type = int",
				"type = char *",
				`No symbol "total" in current context.`,
				"type = const char *"),
		},
	}
	b := newTestBackend(t, mock)
	ctx := context.Background()

	sc, err := b.EnterScope(ctx, backend.RawFrame{Index: 1, PC: 0x55555555515e})
	require.NoError(t, err)
	defer sc.Close()

	symbols, err := sc.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []backend.ScopeSymbol{
		{Name: "n", Kind: backend.KindArgument},
		{Name: "buf", Kind: backend.KindArgument},
		{Name: "total", Kind: backend.KindLocal},
		{Name: "label", Kind: backend.KindLocal},
	}, symbols)

	typ, err := sc.SymbolType(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "char *", typ)

	_, err = sc.SymbolType(ctx, 2)
	assert.True(t, errors.Is(err, backend.ErrSymbolUnresolved))

	typ, err = sc.SymbolType(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "const char *", typ)
	assert.Len(t, mock.GetCommands(), 2, "types are fetched in one batch")

	val, err := sc.SymbolValueText(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, `0x402010 "fault"`, val)

	_, err = sc.SymbolValueText(ctx, 2)
	assert.True(t, errors.Is(err, backend.ErrSymbolUnresolved))

	require.NoError(t, sc.Close())
	_, err = sc.Symbols(ctx)
	assert.True(t, errors.Is(err, backend.ErrEngine))
}

func TestSymbolTypeFailureIsNotRetried(t *testing.T) {
	mock := &MockCommander{
		Outputs: []string{
			batchOutput("",
				"#0  0x0000555555555139 in deref (p=0x0) at crash.c:5",
				"p = 0x0",
				"a = 1\nb = 2"),
			"",
		},
		Errors: []error{nil, errors.New("signal: killed")},
	}
	b := newTestBackend(t, mock)
	ctx := context.Background()

	sc, err := b.EnterScope(ctx, backend.RawFrame{Index: 0})
	require.NoError(t, err)
	defer sc.Close()

	for i := 0; i < 3; i++ {
		typ, err := sc.SymbolType(ctx, i)
		assert.Empty(t, typ)
		assert.True(t, errors.Is(err, backend.ErrEngine), "symbol %d: %v", i, err)
	}
	assert.Len(t, mock.GetCommands(), 2, "one failed batch for all symbols")

	val, err := sc.SymbolValueText(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestEnterScopeWithoutDebugInfo(t *testing.T) {
	mock := &MockCommander{
		Outputs: []string{batchOutput("",
			"#0  0x00007f8b4c37c425 in raise () from /lib64/libc.so.6",
			"No symbol table info available.",
			"No symbol table info available.")},
	}
	_, err := newTestBackend(t, mock).EnterScope(context.Background(), backend.RawFrame{Index: 0})
	assert.True(t, errors.Is(err, backend.ErrNoScope))
}

func TestEnterScopeBadFrame(t *testing.T) {
	mock := &MockCommander{
		Outputs: []string{batchOutput("", "No frame at level 7.", "", "")},
	}
	_, err := newTestBackend(t, mock).EnterScope(context.Background(), backend.RawFrame{Index: 7})
	assert.True(t, errors.Is(err, backend.ErrEngine))
}

func TestFaultReason(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected string
	}{
		{
			name:     "siginfo",
			output:   batchOutput("", "$1 = {si_signo = 11, si_errno = 0, si_code = 2, _sifields = {_sigfault = {si_addr = 0x7ffe0000}}}"),
			expected: "SIGSEGV: Segmentation fault - SEGV_ACCERR (Invalid permissions for mapped object) at address 0x7ffe0000",
		},
		{
			name:     "termination banner",
			output:   batchOutput("Program terminated with signal SIGABRT, Aborted.\n", "Unable to read siginfo"),
			expected: "SIGABRT: Aborted",
		},
		{
			name:     "core without signal",
			output:   batchOutput("", "$1 = void"),
			expected: "SIGSEGV",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockCommander{Outputs: []string{tt.output}}
			reason, err := newTestBackend(t, mock).FaultReason(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, reason)
		})
	}
}
