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

// File: extract/signature.go
// Purpose: Groups reports that describe the same crash. A signature is the
// fault kind followed by the innermost application functions; reports with
// equal signatures form a crash pattern.

package extract

import (
	"sort"
	"strings"
	"time"
)

// signatureDepth is how many application functions a signature holds.
const signatureDepth = 3

// Signature identifies a crash independently of addresses and values.
type Signature struct {
	Fault     string   `json:"fault" yaml:"fault"`
	Functions []string `json:"functions" yaml:"functions"`
}

// String joins the signature into one comparable key.
func (s Signature) String() string {
	return strings.Join(append([]string{s.Fault}, s.Functions...), "|")
}

// Signature computes the crash signature of the report.
func (r *CrashReport) Signature() Signature {
	sig := Signature{Fault: faultKind(r.Fault)}
	for _, f := range r.Frames {
		if len(sig.Functions) == signatureDepth {
			break
		}
		if f.Function != "" && !isSystemFunction(f.Function) {
			sig.Functions = append(sig.Functions, f.Function)
		}
	}
	return sig
}

// faultKind keeps the leading signal or stop name of a fault description.
func faultKind(fault string) string {
	if fault == "" {
		return "unknown"
	}
	if idx := strings.IndexAny(fault, ": "); idx > 0 {
		return fault[:idx]
	}
	return fault
}

// isSystemFunction checks if a function belongs to the C library, the
// runtime or compiler support rather than to the application.
func isSystemFunction(funcName string) bool {
	systemPrefixes := []string{
		"std::",    // C++ standard library
		"__",       // Internal/compiler functions
		"_Z",       // Mangled names
		"pthread_", // Threading functions
		"runtime.", // Go runtime
		"<signal",  // <signal handler called>
	}

	systemFunctions := map[string]bool{
		"main":         true,
		"main.main":    true,
		"clone":        true,
		"clone3":       true,
		"start_thread": true,
		"abort":        true,
		"raise":        true,
		"exit":         true,
	}

	if systemFunctions[funcName] {
		return true
	}
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(funcName, prefix) {
			return true
		}
	}
	return false
}

// CrashPattern is a signature shared by more than one report.
type CrashPattern struct {
	Signature   Signature `json:"signature" yaml:"signature"`
	Occurrences int       `json:"occurrences" yaml:"occurrences"`
	Reports     []string  `json:"reports" yaml:"reports"`
	Targets     []string  `json:"targets" yaml:"targets"`
}

// Comparison summarizes several reports.
type Comparison struct {
	TotalReports   int               `json:"total_reports" yaml:"total_reports"`
	FaultCounts    map[string]int    `json:"fault_distribution" yaml:"fault_distribution"`
	FunctionCounts map[string]int    `json:"function_distribution" yaml:"function_distribution"`
	CrashPatterns  []CrashPattern    `json:"crash_patterns" yaml:"crash_patterns"`
	TimeRange      map[string]string `json:"time_range" yaml:"time_range"`
}

// Compare groups reports by signature and counts faults and functions.
// Only signatures seen more than once become patterns; patterns are ordered
// by occurrence count, then by signature.
func Compare(reports []*CrashReport) Comparison {
	comparison := Comparison{
		TotalReports:   len(reports),
		FaultCounts:    make(map[string]int),
		FunctionCounts: make(map[string]int),
		TimeRange:      make(map[string]string),
	}
	if len(reports) == 0 {
		return comparison
	}

	// Track time range
	var firstTime, lastTime time.Time
	for i, r := range reports {
		if i == 0 || r.Created.Before(firstTime) {
			firstTime = r.Created
		}
		if i == 0 || r.Created.After(lastTime) {
			lastTime = r.Created
		}
	}
	comparison.TimeRange["first"] = firstTime.Format(time.RFC3339)
	comparison.TimeRange["last"] = lastTime.Format(time.RFC3339)

	groups := make(map[string][]*CrashReport)
	signatures := make(map[string]Signature)
	for _, r := range reports {
		sig := r.Signature()
		comparison.FaultCounts[sig.Fault]++

		for _, f := range r.Frames {
			if f.Function != "" && !isSystemFunction(f.Function) {
				comparison.FunctionCounts[f.Function]++
			}
		}

		key := sig.String()
		groups[key] = append(groups[key], r)
		signatures[key] = sig
	}

	for key, group := range groups {
		if len(group) < 2 {
			continue
		}
		pattern := CrashPattern{
			Signature:   signatures[key],
			Occurrences: len(group),
			Reports:     make([]string, 0, len(group)),
			Targets:     make([]string, 0, len(group)),
		}
		for _, r := range group {
			pattern.Reports = append(pattern.Reports, r.ID)
			pattern.Targets = append(pattern.Targets, r.Target.String())
		}
		comparison.CrashPatterns = append(comparison.CrashPatterns, pattern)
	}

	sort.Slice(comparison.CrashPatterns, func(i, j int) bool {
		a, b := comparison.CrashPatterns[i], comparison.CrashPatterns[j]
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		return a.Signature.String() < b.Signature.String()
	})

	return comparison
}
