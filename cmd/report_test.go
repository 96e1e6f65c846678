// File: cmd/report_test.go
package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edespino/crashscope/config"
	"github.com/edespino/crashscope/extract"
)

const crasherSnapshot = `engine: gdb
program: /opt/app/bin/crasher
fault: "SIGSEGV: Segmentation fault"
modules:
  - name: crasher
    path: /opt/app/bin/crasher
    base: 4194304
    debug_info: true
frames:
  - pc: 4198710
    function: deref
    file: crash.c
    line: 5
    symbols:
      - name: p
        kind: argument
        type: "int *"
        value: "0x0"
      - name: tmp
        kind: local
        type: int
        value_error: true
  - pc: 4198736
    function: main
    file: crash.c
    line: 9
`

// executeCommand runs the root command with fresh flag and config state.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")

	resetFlags(rootCmd)
	cfg = config.Default()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeSnapshot(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReportCommandSnapshotJSON(t *testing.T) {
	path := writeSnapshot(t, t.TempDir(), "crash.yaml", crasherSnapshot)

	out, err := executeCommand(t, "report", "--snapshot", path, "--format", "json")
	require.NoError(t, err)

	var report extract.CrashReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "snapshot(gdb)", report.Target.Engine)
	assert.Equal(t, path, report.Target.Core)
	assert.Equal(t, "SIGSEGV: Segmentation fault", report.Fault)
	assert.Equal(t, "crasher", report.Module)
	assert.Equal(t, extract.ReasonFault, report.Reason)
	require.Len(t, report.Frames, 2)
	assert.Equal(t, "deref", report.Frames[0].Function)
	require.Len(t, report.Frames[0].Symbols, 2)
	assert.True(t, report.Frames[0].Symbols[1].Failed)
	assert.NotEmpty(t, report.ID)
}

func TestReportCommandText(t *testing.T) {
	path := writeSnapshot(t, t.TempDir(), "crash.yaml", crasherSnapshot)

	out, err := executeCommand(t, "report", "--snapshot", path, "--format", "text")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Program stopped: SIGSEGV: Segmentation fault\nModule: crasher\n"))
	assert.Contains(t, out, "frame 0: deref((int *) p = 0x0) at crash.c:5")
	assert.Contains(t, out, "    (int) tmp = [unknown]")
	assert.Contains(t, out, "frame 1: main() at crash.c:9")
}

func TestReportCommandManualSkipsFault(t *testing.T) {
	path := writeSnapshot(t, t.TempDir(), "crash.yaml", crasherSnapshot)

	out, err := executeCommand(t, "report", "--snapshot", path, "--format", "json", "--manual")
	require.NoError(t, err)

	var report extract.CrashReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, extract.ReasonManual, report.Reason)
	assert.Empty(t, report.Fault)
}

func TestReportCommandMaxDepth(t *testing.T) {
	path := writeSnapshot(t, t.TempDir(), "crash.yaml", crasherSnapshot)

	out, err := executeCommand(t, "report", "--snapshot", path, "--format", "json", "--max-depth", "1")
	require.NoError(t, err)

	var report extract.CrashReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Frames, 1)
	assert.True(t, report.Truncated)
}

func TestReportCommandOutputDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeSnapshot(t, tmpDir, "crash.yaml", crasherSnapshot)
	outDir := filepath.Join(tmpDir, "reports")

	out, err := executeCommand(t, "report", "--snapshot", path, "--output-dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved report to: ")

	files, err := filepath.Glob(filepath.Join(outDir, "crash_report_*.yaml"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	report, err := loadReport(files[0])
	require.NoError(t, err)
	assert.Equal(t, "crasher", report.Module)
	assert.Len(t, report.Frames, 2)
}

func TestReportCommandCompare(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "first.yaml", crasherSnapshot)
	writeSnapshot(t, dir, "second.yaml", crasherSnapshot)
	writeSnapshot(t, dir, "notes.txt", "not a snapshot")

	out, err := executeCommand(t, "report", "--snapshot", dir, "--compare", "--format", "text")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "frame 0: deref("))
	assert.Contains(t, out, "Crash comparison of 2 reports")
	assert.Contains(t, out, "#1 SIGSEGV (2 occurrences)")
	assert.Contains(t, out, "   in deref\n")
}

func TestReportCommandErrors(t *testing.T) {
	tmpDir := t.TempDir()
	snapshotFile := writeSnapshot(t, tmpDir, "crash.yaml", crasherSnapshot)
	unavailable := writeSnapshot(t, tmpDir, "gone.yaml", "unavailable: true\n")
	coreFile := writeSnapshot(t, tmpDir, "core.1234", "mock core file")

	tests := []struct {
		name     string
		args     []string
		errorMsg string
	}{
		{
			name:     "no args",
			args:     []string{"report"},
			errorMsg: "please specify a core file or directory",
		},
		{
			name:     "invalid format",
			args:     []string{"report", "--snapshot", snapshotFile, "--format", "xml"},
			errorMsg: "invalid format: xml",
		},
		{
			name:     "depth out of range",
			args:     []string{"report", "--snapshot", snapshotFile, "--max-depth", "0"},
			errorMsg: "MaxDepth",
		},
		{
			name:     "missing snapshot",
			args:     []string{"report", "--snapshot", filepath.Join(tmpDir, "missing.yaml")},
			errorMsg: "no such file",
		},
		{
			name:     "engine unavailable",
			args:     []string{"report", "--snapshot", unavailable},
			errorMsg: "no targets were analyzed successfully",
		},
		{
			name:     "pid and core",
			args:     []string{"report", "--pid", "4242", coreFile},
			errorMsg: "--pid cannot be combined with core files",
		},
		{
			name:     "missing directory",
			args:     []string{"report", filepath.Join(tmpDir, "cores")},
			errorMsg: "no such file",
		},
		{
			name:     "delve without address",
			args:     []string{"report", "--delve", ""},
			errorMsg: "please specify a dlv server address",
		},
		{
			name:     "missing config",
			args:     []string{"report", "--config", filepath.Join(tmpDir, "nope.yaml"), coreFile},
			errorMsg: "failed to read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeSnapshot(t, tmpDir, "crash.yaml", crasherSnapshot)
	configFile := writeSnapshot(t, tmpDir, "crashscope.yaml", "format: json\nmax_depth: 1\n")

	out, err := executeCommand(t, "report", "--config", configFile, "--snapshot", path, "--max-depth", "2")
	require.NoError(t, err)

	var report extract.CrashReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), "format should come from the config file")
	assert.Len(t, report.Frames, 2, "--max-depth should override the config file")
	assert.Equal(t, 2, cfg.MaxDepth)
	assert.Equal(t, "snapshot", cfg.Backend)
}

func TestRecordFromSnapshotFails(t *testing.T) {
	path := writeSnapshot(t, t.TempDir(), "crash.yaml", crasherSnapshot)

	_, err := executeCommand(t, "record", "--snapshot", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot record from a snapshot")
}
