// File: backend/gdb/parse_frames.go

package gdb

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/edespino/crashscope/backend"
)

var (
	frameLineRE  = regexp.MustCompile(`^#(\d+)\s+(.*)$`)
	frameAddrRE  = regexp.MustCompile(`^(0x[0-9a-fA-F]+)\s+in\s+(.*)$`)
	frameSrcRE   = regexp.MustCompile(`\s+at\s+(\S+):(\d+)$`)
	frameFromRE  = regexp.MustCompile(`\s+from\s+(\S+)$`)
	infoSymbolRE = regexp.MustCompile(`^(\S+)(?:\s+\+\s+\d+)?\s+in section\s`)
	infoLineRE   = regexp.MustCompile(`Line (\d+) of "([^"]+)"`)
	angleFuncRE  = regexp.MustCompile(`<([^+>]+)(?:\+\d+)?>`)
)

// btFrame is one parsed `backtrace` line.
type btFrame struct {
	Index int
	PC    uint64
	backend.Location
	Module string
}

// backtrace is the parsed output of one `backtrace N` command.
type backtrace struct {
	frames  []btFrame
	stopped string
	noStack bool
}

// parseBacktrace extracts frames from `backtrace` output.
// Parameters:
//   - output: the text gdb printed for the command.
// Returns:
//   - the frames in print order, plus why the unwinder stopped early, if it did.
func parseBacktrace(output string) backtrace {
	var bt backtrace
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, " \r")
		switch {
		case strings.HasPrefix(line, "#"):
			if frame, ok := parseFrameLine(line); ok {
				bt.frames = append(bt.frames, frame)
			}
		case strings.HasPrefix(line, "Backtrace stopped:"):
			bt.stopped = strings.TrimSpace(strings.TrimPrefix(line, "Backtrace stopped:"))
		case line == "No stack.":
			bt.noStack = true
		}
	}
	return bt
}

// parseFrameLine parses a single stack frame such as
// `#1  0x000055555555515e in main (argc=1, argv=0x7ffe) at crash.c:11`.
func parseFrameLine(line string) (btFrame, bool) {
	matches := frameLineRE.FindStringSubmatch(line)
	if matches == nil {
		return btFrame{}, false
	}

	frame := btFrame{Index: parseInt(matches[1])}
	rest := strings.TrimSpace(matches[2])

	if m := frameAddrRE.FindStringSubmatch(rest); m != nil {
		frame.PC = parseAddress(m[1])
		rest = m[2]
	}

	if m := frameSrcRE.FindStringSubmatch(rest); m != nil {
		frame.File = m[1]
		frame.Line = parseInt(m[2])
		rest = rest[:len(rest)-len(m[0])]
	} else if m := frameFromRE.FindStringSubmatch(rest); m != nil {
		frame.Module = m[1]
		rest = rest[:len(rest)-len(m[0])]
	}

	name := rest
	if strings.HasPrefix(name, "<") {
		// <signal handler called> and friends carry no argument list.
		frame.Function = name
		return frame, true
	}
	if idx := strings.Index(name, " ("); idx >= 0 {
		name = name[:idx]
	}
	name = strings.TrimSpace(name)
	if name != "??" {
		frame.Function = name
	}
	return frame, true
}

// parseInfoSymbol extracts the function name from `info symbol ADDR`.
func parseInfoSymbol(output string) backend.Location {
	for _, line := range strings.Split(output, "\n") {
		if m := infoSymbolRE.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return backend.Location{Function: m[1]}
		}
	}
	return backend.Location{}
}

// parseInfoLine extracts file, line and function from `info line *ADDR`.
// gdb answers either `Line 5 of "crash.c" starts at address ... <deref+12> ...`
// or `No line number information available for address 0x... <raise+203>`.
func parseInfoLine(output string) backend.Location {
	var loc backend.Location
	if m := infoLineRE.FindStringSubmatch(output); m != nil {
		loc.Line = parseInt(m[1])
		loc.File = m[2]
	}
	if m := angleFuncRE.FindStringSubmatch(output); m != nil {
		loc.Function = m[1]
	}
	return loc
}

// frameSelectError reports the error gdb printed for `frame N`, if any.
func frameSelectError(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "No frame at level") || line == "No stack." {
			return line, true
		}
	}
	return "", false
}

// parseInt safely converts string to int
func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// parseAddress converts a 0x-prefixed hex string, returning 0 when invalid.
func parseAddress(s string) uint64 {
	n, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
	if err != nil {
		return 0
	}
	return n
}
