// File: config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edespino/crashscope/extract"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crashscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20, cfg.MaxDepth)
	assert.Equal(t, 20, cfg.MaxSymbols)
	assert.Equal(t, 1024, cfg.MaxTextLen)
	assert.Equal(t, 64*1024, cfg.MaxReportBytes)
	assert.Equal(t, extract.DefaultSourceFrames, cfg.SourceFrames)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
backend: delve
max_depth: 64
timeout: 45s
format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "delve", cfg.Backend)
	assert.Equal(t, 64, cfg.MaxDepth)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, "json", cfg.Format)
	// Untouched fields keep their defaults.
	assert.Equal(t, 20, cfg.MaxSymbols)
	assert.Equal(t, "gdb", cfg.GDBPath)
}

func TestLoadFromEnvironment(t *testing.T) {
	path := writeConfig(t, "max_symbols: 50\n")
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxSymbols)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{name: "unknown backend", content: "backend: lldb\n", errText: "Backend"},
		{name: "depth too large", content: "max_depth: 1000\n", errText: "MaxDepth"},
		{name: "text limit too small", content: "max_text_len: 4\n", errText: "MaxTextLen"},
		{name: "unknown key", content: "max_dept: 10\n", errText: "max_dept"},
		{name: "bad format", content: "format: xml\n", errText: "Format"},
		{name: "negative timeout", content: "timeout: -5s\n", errText: "Timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExtractOptions(t *testing.T) {
	cfg := Default()
	cfg.MaxDepth = 8
	cfg.SourceRoot = "/src"

	opts := cfg.ExtractOptions(nil)
	assert.Equal(t, 8, opts.MaxDepth)
	assert.Equal(t, "/src", opts.SourceRoot)
	assert.Equal(t, cfg.MaxReportBytes, opts.MaxReportBytes)
}
