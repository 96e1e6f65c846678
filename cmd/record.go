// File: cmd/record.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/edespino/crashscope/backend/snapshot"
)

var recordOutput string

// recordCmd captures a debug session for later replay
var recordCmd = &cobra.Command{
	Use:   "record [core_file]",
	Short: "Record a debug session into a replayable snapshot",
	Long: `Walk a core file, live process or dlv server once and save everything
a report build would ask the debugger into a YAML snapshot. The snapshot
replays with 'crashscope report --snapshot FILE' without the debugger:
  crashscope record /var/crash/core.1234 --binary /opt/app/bin/server -o crash.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecord(cmd.Context(), cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)
	addTargetFlags(recordCmd)
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "snapshot.yaml", "Snapshot file to write")
}

func runRecord(ctx context.Context, w io.Writer, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Backend == "snapshot" {
		return fmt.Errorf("cannot record from a snapshot")
	}

	targets, err := collectTargets(args)
	if err != nil {
		return err
	}
	if len(targets) != 1 {
		return fmt.Errorf("record takes exactly one target, found %d", len(targets))
	}
	t := targets[0]

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	be, closeBackend, err := openBackend(ctx, t)
	if err != nil {
		return err
	}
	defer releaseBackend(t, closeBackend)

	snap, err := snapshot.Record(ctx, be, cfg.MaxDepth)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", t, err)
	}
	if err := snap.Save(recordOutput); err != nil {
		return err
	}

	logger.Info("snapshot recorded", "target", t.String(), "frames", len(snap.Frames))
	fmt.Fprintf(w, "Snapshot saved to: %s\n", recordOutput)
	return nil
}
