// File: backend/gdb/parse_scope.go

package gdb

import (
	"regexp"
	"strings"

	"github.com/edespino/crashscope/backend"
)

var (
	variableRE = regexp.MustCompile(`^([A-Za-z_$][\w$:<>~.]*) = (.*)$`)
	whatisRE   = regexp.MustCompile(`^type = (.*)$`)
)

// variable is one name/value pair printed by `info args` or `info locals`.
type variable struct {
	Name  string
	Kind  backend.SymbolKind
	Value string
}

// parseVariables parses `info args` / `info locals` output. The boolean is
// false when gdb has no symbol table for the frame.
func parseVariables(output string, kind backend.SymbolKind) ([]variable, bool) {
	var vars []variable
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimRight(line, " \r")
		switch trimmed {
		case "":
			continue
		case "No symbol table info available.":
			return nil, false
		case "No arguments.", "No locals.":
			return nil, true
		}

		if m := variableRE.FindStringSubmatch(trimmed); m != nil {
			vars = append(vars, variable{Name: m[1], Kind: kind, Value: m[2]})
		} else if len(vars) > 0 {
			// Long aggregates occasionally wrap even with width 0.
			vars[len(vars)-1].Value += " " + strings.TrimSpace(trimmed)
		}
	}
	return vars, true
}

// parseWhatis extracts the type from `whatis NAME` output.
func parseWhatis(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		if m := whatisRE.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// unreadableValue reports whether gdb printed a placeholder instead of a value.
func unreadableValue(value string) bool {
	return value == "<optimized out>" ||
		strings.HasPrefix(value, "<error:") ||
		strings.HasPrefix(value, "Cannot access memory at address")
}
