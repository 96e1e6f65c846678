// File: extract/source.go
package extract

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// readSource returns lines max(1, line-before) .. line of path, numbered.
func readSource(path string, line, before int) ([]SourceLine, error) {
	if line <= 0 {
		return nil, fmt.Errorf("no line number for %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	first := line - before
	if first < 1 {
		first = 1
	}

	var lines []SourceLine
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan() && n <= line; n++ {
		if n >= first {
			lines = append(lines, SourceLine{Number: n, Text: scanner.Text()})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s has fewer than %d lines", path, line)
	}
	return lines, nil
}

// sourcePath resolves a frame file against the configured source root.
func (b *build) sourcePath(file string) string {
	if filepath.IsAbs(file) || b.opts.SourceRoot == "" {
		return file
	}
	return filepath.Join(b.opts.SourceRoot, file)
}

// attachSource fills Source for the first SourceFrames frames with a
// readable file. Source text counts against the report budget.
func (b *build) attachSource(frames []Frame) {
	if b.opts.SourceFrames < 0 {
		return
	}
	attached := 0
	for i := range frames {
		if attached == b.opts.SourceFrames || b.exhausted {
			return
		}
		if !frames[i].HasSource() {
			continue
		}
		lines, err := readSource(b.sourcePath(frames[i].File), frames[i].Line, DefaultSourceBefore)
		if err != nil {
			b.logger.Debug("source not available", "frame", i, "file", frames[i].File, "error", err)
			continue
		}

		size := 0
		for _, l := range lines {
			size += len(l.Text) + 1
		}
		if !b.spend(size) {
			b.truncate("report text budget exhausted before source context")
			return
		}
		frames[i].Source = lines
		attached++
	}
}
