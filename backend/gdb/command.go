// File: backend/gdb/command.go
package gdb

import (
	"context"
	"os/exec"
)

// Commander interface for command execution
type Commander interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RealCommander executes actual system commands. gdb reports most problems
// on stderr, so both streams are returned.
type RealCommander struct{}

func (c RealCommander) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}
