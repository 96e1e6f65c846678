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

// File: backend/gdb/parse_modules.go
// Purpose: Turns `info files` and `info sharedlibrary` output into the module
// list of the capability set. The executable always comes first, followed by
// shared libraries in load order.

package gdb

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/edespino/crashscope/backend"
)

var (
	symbolsFromRE = regexp.MustCompile(`Symbols from "([^"]+)"`)
	sectionRE     = regexp.MustCompile(`^\s*(0x[0-9a-fA-F]+) - (0x[0-9a-fA-F]+) is (\S+)\s*$`)
	libraryRE     = regexp.MustCompile(`^(0x[0-9a-fA-F]+)\s+(0x[0-9a-fA-F]+)\s+(Yes|No)(\s+\(\*\))?\s+(\S.*)$`)
)

// parseExecutable builds the ModuleInfo of the main program.
// Parameters:
//   - infoFiles: output of `info files`.
//   - preamble: what gdb printed while loading, which carries the
//     "No debugging symbols found" warning.
//   - program: the configured program path, used when gdb did not name one.
// Returns:
//   - the module and whether a program could be identified at all.
func parseExecutable(infoFiles, preamble, program string) (backend.ModuleInfo, bool) {
	path := program
	if m := symbolsFromRE.FindStringSubmatch(infoFiles); m != nil {
		path = m[1]
	}
	if path == "" {
		return backend.ModuleInfo{}, false
	}

	var base uint64
	for _, line := range strings.Split(infoFiles, "\n") {
		m := sectionRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if start := parseAddress(m[1]); start != 0 && (base == 0 || start < base) {
			base = start
		}
	}

	return backend.ModuleInfo{
		Name:         filepath.Base(path),
		Path:         path,
		Base:         base,
		HasDebugInfo: !missingDebugInfo(preamble+"\n"+infoFiles, path),
	}, true
}

// missingDebugInfo reports whether gdb warned that path has no debug symbols.
func missingDebugInfo(output, path string) bool {
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "No debugging symbols found in") &&
			strings.Contains(line, filepath.Base(path)) {
			return true
		}
	}
	return false
}

// parseSharedLibraries extracts shared library information from GDB output.
// Parameters:
//   - output: The raw `info sharedlibrary` output.
// Returns:
//   - One ModuleInfo per mapped library. Libraries gdb could not map are skipped.
func parseSharedLibraries(output string) []backend.ModuleInfo {
	var libraries []backend.ModuleInfo

	for _, line := range strings.Split(output, "\n") {
		matches := libraryRE.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		libPath := strings.TrimSpace(matches[5])
		symsRead := matches[3] == "Yes"
		noDebug := matches[4] != ""

		libraries = append(libraries, backend.ModuleInfo{
			Name:         filepath.Base(libPath),
			Path:         libPath,
			Base:         parseAddress(matches[1]),
			HasDebugInfo: symsRead && !noDebug,
		})
	}

	return libraries
}
