// File: extract/signature_test.go
package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edespino/crashscope/backend"
)

func reportWith(id, fault string, created time.Time, functions ...string) *CrashReport {
	r := &CrashReport{
		ID:      id,
		Created: created,
		Target:  backend.Target{Engine: "gdb", Core: "/cores/" + id},
		Fault:   fault,
	}
	for i, fn := range functions {
		r.Frames = append(r.Frames, Frame{Index: i, Function: fn})
	}
	return r
}

func TestSignature(t *testing.T) {
	tests := []struct {
		name     string
		report   *CrashReport
		expected string
	}{
		{
			name:     "skips library frames",
			report:   reportWith("a", "SIGSEGV: Segmentation fault", time.Time{}, "raise", "__strlen_avx2", "parse_header", "read_request", "serve", "handle", "main"),
			expected: "SIGSEGV|parse_header|read_request|serve",
		},
		{
			name:     "go panic",
			report:   reportWith("b", "unrecovered panic", time.Time{}, "runtime.gopanic", "main.(*Server).handle", "main.main"),
			expected: "unrecovered|main.(*Server).handle",
		},
		{
			name:     "no fault",
			report:   reportWith("c", "", time.Time{}),
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.report.Signature().String())
		})
	}
}

func TestCompare(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	reports := []*CrashReport{
		reportWith("r1", "SIGSEGV: Segmentation fault", base.Add(2*time.Hour), "parse_header", "serve"),
		reportWith("r2", "SIGABRT: Aborted", base, "abort", "check_invariant", "serve"),
		reportWith("r3", "SIGSEGV: Segmentation fault at address 0x8", base.Add(time.Hour), "parse_header", "serve"),
		reportWith("r4", "SIGABRT: Aborted", base.Add(3*time.Hour), "raise", "check_invariant", "serve"),
		reportWith("r5", "SIGSEGV", base.Add(30*time.Minute), "parse_header", "serve"),
		reportWith("r6", "SIGBUS: Bus error", base.Add(5*time.Hour), "memcpy_slow"),
	}

	comparison := Compare(reports)

	assert.Equal(t, 6, comparison.TotalReports)
	assert.Equal(t, map[string]int{"SIGSEGV": 3, "SIGABRT": 2, "SIGBUS": 1}, comparison.FaultCounts)
	assert.Equal(t, 5, comparison.FunctionCounts["serve"])
	assert.Equal(t, 3, comparison.FunctionCounts["parse_header"])
	assert.NotContains(t, comparison.FunctionCounts, "abort")

	require.Len(t, comparison.CrashPatterns, 2)
	assert.Equal(t, 3, comparison.CrashPatterns[0].Occurrences)
	assert.Equal(t, Signature{Fault: "SIGSEGV", Functions: []string{"parse_header", "serve"}}, comparison.CrashPatterns[0].Signature)
	assert.ElementsMatch(t, []string{"r1", "r3", "r5"}, comparison.CrashPatterns[0].Reports)
	assert.Equal(t, 2, comparison.CrashPatterns[1].Occurrences)

	assert.Equal(t, "2024-03-01T10:00:00Z", comparison.TimeRange["first"])
	assert.Equal(t, "2024-03-01T15:00:00Z", comparison.TimeRange["last"])
}

func TestCompareEmpty(t *testing.T) {
	comparison := Compare(nil)
	assert.Equal(t, 0, comparison.TotalReports)
	assert.Empty(t, comparison.CrashPatterns)
}
