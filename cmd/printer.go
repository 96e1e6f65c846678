// File: cmd/printer.go
package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/edespino/crashscope/extract"
)

// printComparison renders a comparison as aligned plain text.
func printComparison(w io.Writer, c extract.Comparison) error {
	fmt.Fprintf(w, "Crash comparison of %d reports", c.TotalReports)
	if first, ok := c.TimeRange["first"]; ok {
		fmt.Fprintf(w, " (%s to %s)", first, c.TimeRange["last"])
	}
	fmt.Fprintln(w)

	if len(c.FaultCounts) > 0 {
		fmt.Fprintln(w, "\nFaults:")
		if err := printCounts(w, c.FaultCounts); err != nil {
			return err
		}
	}

	if len(c.FunctionCounts) > 0 {
		fmt.Fprintln(w, "\nFunctions:")
		if err := printCounts(w, c.FunctionCounts); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "\nCrash patterns:")
	if len(c.CrashPatterns) == 0 {
		fmt.Fprintln(w, "  none")
		return nil
	}
	for i, p := range c.CrashPatterns {
		fmt.Fprintf(w, "#%d %s (%d occurrences)\n", i+1, p.Signature.Fault, p.Occurrences)
		if len(p.Signature.Functions) > 0 {
			fmt.Fprintf(w, "   in %s\n", strings.Join(p.Signature.Functions, " <- "))
		}
		for _, t := range p.Targets {
			fmt.Fprintf(w, "   - %s\n", t)
		}
	}
	return nil
}

// printCounts prints a name/count table, most frequent first.
func printCounts(w io.Writer, counts map[string]int) error {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%d\n", name, counts[name])
	}
	return tw.Flush()
}
