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

// File: backend/gdb/parse_signal.go
// Purpose: Decodes the signal that stopped the debuggee from `print $_siginfo`
// or from the "Program terminated with signal" banner gdb prints when it
// loads a core file.

package gdb

import (
	"fmt"
	"regexp"
	"strings"
)

// signalMap provides names for common signals.
var signalMap = map[int]string{
	1:  "SIGHUP",  // Hangup
	2:  "SIGINT",  // Terminal interrupt
	3:  "SIGQUIT", // Terminal quit
	4:  "SIGILL",  // Illegal instruction
	5:  "SIGTRAP", // Trace/breakpoint trap
	6:  "SIGABRT", // Process abort
	7:  "SIGBUS",  // Bus error
	8:  "SIGFPE",  // Floating point exception
	9:  "SIGKILL", // Kill process
	11: "SIGSEGV", // Segmentation violation
	13: "SIGPIPE", // Broken pipe
	14: "SIGALRM", // Timer signal
	15: "SIGTERM", // Termination
}

// signalCodeMap maps signal-specific codes to descriptions.
var signalCodeMap = map[int]map[int]string{
	11: { // SIGSEGV codes
		1: "SEGV_MAPERR (Address not mapped to object)",
		2: "SEGV_ACCERR (Invalid permissions for mapped object)",
		3: "SEGV_BNDERR (Failed address bound checks)",
		4: "SEGV_PKUERR (Access denied by memory protection keys)",
	},
	7: { // SIGBUS codes
		1: "BUS_ADRALN (Invalid address alignment)",
		2: "BUS_ADRERR (Nonexistent physical address)",
		3: "BUS_OBJERR (Object-specific hardware error)",
	},
	8: { // SIGFPE codes
		1: "FPE_INTDIV (Integer divide by zero)",
		2: "FPE_INTOVF (Integer overflow)",
		3: "FPE_FLTDIV (Floating point divide by zero)",
		4: "FPE_FLTOVF (Floating point overflow)",
		5: "FPE_FLTUND (Floating point underflow)",
		6: "FPE_FLTRES (Floating point inexact result)",
		7: "FPE_FLTINV (Invalid floating point operation)",
		8: "FPE_FLTSUB (Subscript out of range)",
	},
}

var (
	siginfoRE    = regexp.MustCompile(`si_signo = (\d+).*?si_code = (-?\d+)`)
	sigFaultRE   = regexp.MustCompile(`_sigfault\s*=\s*{[^}]*si_addr\s*=\s*(0x[0-9a-fA-F]+)`)
	terminatedRE = regexp.MustCompile(`Program terminated with signal (SIG[A-Z0-9]+), ([^.]+)\.`)
)

// signalInfo describes the signal that stopped the debuggee.
type signalInfo struct {
	Number      int
	Code        int
	Name        string
	Description string
	Address     string
}

// String renders the signal the way it is shown in crash reports.
func (s signalInfo) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	if s.Description != "" {
		b.WriteString(": " + s.Description)
	}
	if s.Address != "" {
		b.WriteString(" at address " + s.Address)
	}
	return b.String()
}

// parseSignalInfo extracts signal information from `print $_siginfo`.
func parseSignalInfo(output string) (signalInfo, bool) {
	matches := siginfoRE.FindStringSubmatch(output)
	if matches == nil {
		return signalInfo{}, false
	}

	info := signalInfo{
		Number: parseInt(matches[1]),
		Code:   parseInt(matches[2]),
	}
	info.Name = getSignalName(info.Number)
	info.Description = getSignalDescription(info.Number, info.Code)

	// Only memory faults carry a meaningful address.
	if info.Number == 11 || info.Number == 7 {
		if m := sigFaultRE.FindStringSubmatch(output); m != nil {
			info.Address = m[1]
		}
	}
	return info, true
}

// parseTerminationSignal reads the banner gdb prints when loading a core.
func parseTerminationSignal(output string) (signalInfo, bool) {
	matches := terminatedRE.FindStringSubmatch(output)
	if matches == nil {
		return signalInfo{}, false
	}
	info := signalInfo{Name: matches[1], Description: matches[2]}
	for num, name := range signalMap {
		if name == info.Name {
			info.Number = num
			break
		}
	}
	return info, true
}

// getSignalName converts a signal number to its corresponding name.
func getSignalName(signo int) string {
	if name, ok := signalMap[signo]; ok {
		return name
	}
	return fmt.Sprintf("SIGNAL_%d", signo)
}

// getSignalDescription provides a detailed description of a signal.
// Parameters:
//   - signo: The signal number.
//   - code: The signal code.
// Returns:
//   - A string containing a detailed description of the signal.
func getSignalDescription(signo, code int) string {
	var desc strings.Builder

	switch signo {
	case 11:
		desc.WriteString("Segmentation fault")
	case 6:
		desc.WriteString("Process abort signal (possibly assertion failure)")
	case 7:
		desc.WriteString("Bus error")
	case 8:
		desc.WriteString("Floating point exception")
	case 4:
		desc.WriteString("Illegal instruction")
	case 5:
		desc.WriteString("Trace/breakpoint trap")
	default:
		desc.WriteString(fmt.Sprintf("Signal %d", signo))
	}

	if codes, ok := signalCodeMap[signo]; ok {
		if codeDesc, ok := codes[code]; ok {
			desc.WriteString(fmt.Sprintf(" - %s", codeDesc))
		} else if code != 0 {
			desc.WriteString(fmt.Sprintf(" (code %d)", code))
		}
	}

	return desc.String()
}
