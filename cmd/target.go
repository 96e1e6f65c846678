// File: cmd/target.go
package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/edespino/crashscope/backend"
	"github.com/edespino/crashscope/backend/delve"
	"github.com/edespino/crashscope/backend/gdb"
	"github.com/edespino/crashscope/backend/snapshot"
)

// corePatterns match the usual core file names written by the kernel and
// by systemd-coredump.
var corePatterns = []string{
	"core.*",
	"*.core",
	"core",
	"core-*",
}

var snapshotPatterns = []string{
	"*.yaml",
	"*.yml",
}

// target is one debuggee to build a report for.
type target struct {
	engine   string
	core     string
	pid      int
	addr     string
	snapshot string
}

func (t target) String() string {
	switch {
	case t.core != "":
		return t.core
	case t.pid != 0:
		return fmt.Sprintf("pid %d", t.pid)
	case t.addr != "":
		return t.addr
	}
	return t.snapshot
}

// collectTargets turns the command line into the list of debuggees for the
// configured backend.
func collectTargets(args []string) ([]target, error) {
	var targets []target

	switch cfg.Backend {
	case "delve":
		addr := delveAddr
		if addr == "" && len(args) == 1 {
			addr = args[0]
		}
		if addr == "" {
			return nil, fmt.Errorf("please specify a dlv server address")
		}
		targets = append(targets, target{engine: "delve", addr: addr})

	case "snapshot":
		paths := args
		if snapshotPath != "" {
			paths = append([]string{snapshotPath}, args...)
		}
		files, err := findFiles(paths, snapshotPatterns, "snapshot files")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			targets = append(targets, target{engine: "snapshot", snapshot: f})
		}

	default:
		if pidFlag != 0 {
			if len(args) > 0 {
				return nil, fmt.Errorf("--pid cannot be combined with core files")
			}
			return []target{{engine: "gdb", pid: pidFlag}}, nil
		}
		files, err := findFiles(args, corePatterns, "core files")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			targets = append(targets, target{engine: "gdb", core: f})
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("please specify a core file or directory")
	}
	if cfg.MaxCores > 0 && len(targets) > cfg.MaxCores {
		logger.Info("limiting analysis to the most recent targets", "count", cfg.MaxCores, "found", len(targets))
		targets = targets[:cfg.MaxCores]
	}
	return targets, nil
}

func findFiles(paths, patterns []string, what string) ([]string, error) {
	var all []string
	seen := make(map[string]bool)
	for _, p := range paths {
		files, err := findCoreFiles(p, patterns)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no %s found in %s", what, p)
		}
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				all = append(all, f)
			}
		}
	}
	return all, nil
}

// findCoreFiles locates files matching patterns under path, newest first.
// A path naming a regular file is returned as is.
func findCoreFiles(path string, patterns []string) ([]string, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !fileInfo.IsDir() {
		return []string{path}, nil
	}

	type found struct {
		path string
		mod  int64
	}
	var files []found
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !matchesAny(d.Name(), patterns) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, found{path: p, mod: info.ModTime().UnixNano()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].mod != files[j].mod {
			return files[i].mod > files[j].mod
		}
		return files[i].path < files[j].path
	})

	coreFiles := make([]string, 0, len(files))
	for _, f := range files {
		coreFiles = append(coreFiles, f.path)
	}
	return coreFiles, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// openBackend connects the adapter for t. The returned close function is
// never nil.
func openBackend(ctx context.Context, t target) (backend.Backend, func() error, error) {
	noop := func() error { return nil }

	switch t.engine {
	case "delve":
		b, err := delve.Dial(ctx, t.addr, delve.WithLogger(logger))
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil

	case "snapshot":
		b, err := snapshot.Open(t.snapshot)
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	}

	b, err := gdb.New(gdb.Config{
		GDBPath:   cfg.GDBPath,
		Program:   binaryPath,
		Core:      t.core,
		PID:       t.pid,
		SourceDir: cfg.SourceRoot,
	}, gdb.WithLogger(logger))
	if err != nil {
		return nil, noop, err
	}
	return b, noop, nil
}

// releaseBackend closes a backend opened by openBackend. Close errors only
// get logged; the report is already built.
func releaseBackend(t target, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Debug("closing backend failed", "target", t.String(), "error", err)
	}
}
