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

// File: root.go
// Package: cmd
//
// Description:
// This file contains the entry point and base configuration for the `crashscope` CLI.
// It defines the root command (`rootCmd`), installs the structured logger and
// loads the configuration before any subcommand runs.
//
// Features:
// - Serves as the primary entry point for the `crashscope` CLI application.
// - Loads the YAML configuration (`--config` or $CRASHSCOPE_CONFIG) and lets
//   command line flags override it.
// - Organizes and executes subcommands: `report`, `compare` and `record`.
//
// Usage:
// - Run the `crashscope` command without any arguments to see the help message:
//   `./crashscope`
//
// Authors:
// - Cloudberry Open Source Contributors

package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/edespino/crashscope/config"
)

var (
	cfgFile     string
	verboseFlag bool

	// cfg is the merged configuration of the running command.
	cfg = config.Default()

	logger = slog.Default()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "crashscope",
	Short: "Extract crash context from a debugger for root cause analysis",
	Long: `The crashscope CLI attaches to a stopped or crashed program through a
debugger (gdb, a headless dlv server, or a recorded snapshot) and extracts
the call stack, the arguments and locals of every frame, the fault reason
and the surrounding source into a bounded crash report.

Examples:
  - Build a report from a core file:
    ./crashscope report /var/crash/core.1234 --binary /opt/app/bin/server

  - Render a prompt-ready report from a live Go program:
    ./crashscope report --delve 127.0.0.1:4040 --format text`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd.ErrOrStderr(), verboseFlag)

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, &loaded)
		if err := validateFormat(loaded.Format); err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This function is called by main.main() to start the application.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $"+config.EnvConfigFile+")")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
	initSharedFlags()
}
