// File: cmd/report.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/edespino/crashscope/config"
	"github.com/edespino/crashscope/extract"
)

var (
	outputDir   string
	maxCores    int
	compareFlag bool
	parallel    int
	manualFlag  bool
)

// reportCmd builds crash reports
var reportCmd = &cobra.Command{
	Use:   "report [core_file_or_directory...]",
	Short: "Build crash reports from core files or live debuggees",
	Long: `Build a bounded crash report for each debuggee: the call stack, the
arguments and locals of every frame, the fault reason and the source
around the innermost frames.

It can analyze core files, a live process, a headless dlv server or a
recorded snapshot:
  crashscope report /var/crash/core.1234 --binary /opt/app/bin/server
  crashscope report /var/crash/ --binary /opt/app/bin/server --max-cores=5 --compare
  crashscope report --pid 4242 --format text
  crashscope report --delve 127.0.0.1:4040
  crashscope report --snapshot session.yaml

Reports are written to stdout unless --output-dir is set, in which case
one timestamped file per report is created there.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd.Context(), cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	addTargetFlags(reportCmd)
	reportCmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to store reports (default stdout)")
	reportCmd.Flags().IntVar(&maxCores, "max-cores", 0, "Maximum number of core files to analyze")
	reportCmd.Flags().BoolVar(&compareFlag, "compare", false, "Compare the reports and identify crash patterns")
	reportCmd.Flags().IntVar(&parallel, "parallel", config.Default().Parallel, "Number of targets analyzed at once")
	reportCmd.Flags().BoolVar(&manualFlag, "manual", false, "Treat the stop as a manual invocation and skip the fault lookup")
}

// runReport is the main entry point for report generation
func runReport(ctx context.Context, w io.Writer, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	targets, err := collectTargets(args)
	if err != nil {
		return err
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	reports := make([]*extract.CrashReport, len(targets))
	errs := make([]error, len(targets))

	var g errgroup.Group
	g.SetLimit(cfg.Parallel)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			report, err := buildReport(ctx, t)
			if err != nil {
				logger.Error("analysis failed", "target", t.String(), "error", err)
				errs[i] = err
				return nil
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var built []*extract.CrashReport
	var firstErr error
	for i, r := range reports {
		if r == nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		built = append(built, r)
		if err := emitReport(w, r); err != nil {
			logger.Error("failed to save report", "target", targets[i].String(), "error", err)
		}
	}

	if len(built) == 0 {
		return fmt.Errorf("no targets were analyzed successfully: %w", firstErr)
	}

	if compareFlag && len(built) > 1 {
		if err := emitComparison(w, extract.Compare(built)); err != nil {
			logger.Error("failed to save comparison results", "error", err)
		}
	}

	return nil
}

// buildReport opens the backend for t and assembles one report, bounded by
// the configured timeout.
func buildReport(ctx context.Context, t target) (*extract.CrashReport, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	be, closeBackend, err := openBackend(ctx, t)
	if err != nil {
		return nil, err
	}
	defer releaseBackend(t, closeBackend)

	trigger := extract.Trigger{Reason: extract.ReasonFault}
	if manualFlag {
		trigger.Reason = extract.ReasonManual
	}
	session := extract.NewSession(be, trigger)
	return extract.Assemble(ctx, session, cfg.ExtractOptions(logger))
}
