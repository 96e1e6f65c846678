// File: cmd/flags.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/edespino/crashscope/config"
)

// Shared command flags
var (
	formatFlag string // Common flag for output format (yaml/json/text)

	// Target selection, shared by report and record.
	binaryPath   string
	pidFlag      int
	delveAddr    string
	snapshotPath string
	gdbPath      string
	sourceRoot   string

	// Extraction limits.
	maxDepth    int
	maxSymbols  int
	timeoutFlag time.Duration
)

// validateFormat checks if the provided format is "json", "yaml" or "text"
func validateFormat(format string) error {
	switch format {
	case "json", "yaml", "text":
		return nil
	}
	return fmt.Errorf("invalid format: %s. Valid options are 'json', 'yaml' or 'text'", format)
}

// initSharedFlags initializes flags that are shared across multiple commands
func initSharedFlags() {
	// Add format flag to root command so it's available to all subcommands
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", config.Default().Format, "Output format: yaml, json or text")
}

// addTargetFlags registers the flags selecting and limiting a debuggee.
func addTargetFlags(cmd *cobra.Command) {
	defaults := config.Default()
	cmd.Flags().StringVar(&binaryPath, "binary", "", "Executable that produced the core file or runs as --pid")
	cmd.Flags().IntVar(&pidFlag, "pid", 0, "Attach gdb to a live process instead of reading a core file")
	cmd.Flags().StringVar(&delveAddr, "delve", "", "Address of a headless dlv server (host:port)")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Replay a recorded snapshot file")
	cmd.Flags().StringVar(&gdbPath, "gdb", defaults.GDBPath, "gdb executable")
	cmd.Flags().StringVar(&sourceRoot, "source-root", "", "Directory relative source paths are resolved against")
	cmd.Flags().IntVar(&maxDepth, "max-depth", defaults.MaxDepth, "Maximum number of stack frames to capture")
	cmd.Flags().IntVar(&maxSymbols, "max-symbols", defaults.MaxSymbols, "Maximum number of symbols to collect per frame")
	cmd.Flags().DurationVar(&timeoutFlag, "timeout", defaults.Timeout, "Time limit for one report build (0 disables)")
}

// applyFlagOverrides copies every flag set on the command line over the
// loaded configuration.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		c.Format = formatFlag
	}
	if flags.Changed("gdb") {
		c.GDBPath = gdbPath
	}
	if flags.Changed("source-root") {
		c.SourceRoot = sourceRoot
	}
	if flags.Changed("max-depth") {
		c.MaxDepth = maxDepth
	}
	if flags.Changed("max-symbols") {
		c.MaxSymbols = maxSymbols
	}
	if flags.Changed("timeout") {
		c.Timeout = timeoutFlag
	}
	if flags.Changed("output-dir") {
		c.OutputDir = outputDir
	}
	if flags.Changed("max-cores") {
		c.MaxCores = maxCores
	}
	if flags.Changed("parallel") {
		c.Parallel = parallel
	}

	switch {
	case flags.Changed("delve"):
		c.Backend = "delve"
	case flags.Changed("snapshot"):
		c.Backend = "snapshot"
	case flags.Changed("pid"), flags.Changed("binary"):
		c.Backend = "gdb"
	}
}
