// File: cmd/compare.go
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/edespino/crashscope/extract"
)

// compareCmd groups saved reports by crash signature
var compareCmd = &cobra.Command{
	Use:   "compare report_file...",
	Short: "Compare saved crash reports and identify patterns",
	Long: `Compare crash reports previously written by 'crashscope report'.
Reports sharing a fault kind and the innermost application functions are
grouped into crash patterns:
  crashscope compare reports/*.yaml --format text`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompare(cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to store the comparison (default stdout)")
}

func runCompare(w io.Writer, paths []string) error {
	reports := make([]*extract.CrashReport, 0, len(paths))
	for _, p := range paths {
		r, err := loadReport(p)
		if err != nil {
			return err
		}
		reports = append(reports, r)
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return emitComparison(w, extract.Compare(reports))
}
