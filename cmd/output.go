// File: cmd/output.go

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/edespino/crashscope/extract"
)

// marshalOutput encodes v as JSON or YAML. Text rendering is done by the
// callers since it differs per value.
func marshalOutput(v interface{}) ([]byte, error) {
	if cfg.Format == "json" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(v)
}

func outputExtension() string {
	if cfg.Format == "text" {
		return "txt"
	}
	return cfg.Format
}

// writeOutput saves data as a timestamped file in the output directory, or
// writes it to w when no output directory is configured.
func writeOutput(w io.Writer, kind, id string, data []byte) error {
	if cfg.OutputDir == "" {
		if cfg.Format == "yaml" {
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
		}
		_, err := w.Write(data)
		return err
	}

	timestamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("crash_%s_%s", kind, timestamp)
	if id != "" {
		name += "_" + id
	}
	filename := filepath.Join(cfg.OutputDir, name+"."+outputExtension())

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", kind, err)
	}

	fmt.Fprintf(w, "Saved %s to: %s\n", kind, filename)
	return nil
}

// emitReport writes one crash report in the configured format.
func emitReport(w io.Writer, r *extract.CrashReport) error {
	var data []byte
	if cfg.Format == "text" {
		data = []byte(r.Text())
	} else {
		var err error
		if data, err = marshalOutput(r); err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
	}
	return writeOutput(w, "report", shortID(r.ID), data)
}

// emitComparison writes the comparison of several reports.
func emitComparison(w io.Writer, c extract.Comparison) error {
	var data []byte
	if cfg.Format == "text" {
		var buf bytes.Buffer
		if err := printComparison(&buf, c); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = marshalOutput(c); err != nil {
			return fmt.Errorf("failed to marshal comparison: %w", err)
		}
	}
	return writeOutput(w, "comparison", "", data)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// loadReport reads a report saved by `crashscope report`. Files ending in
// .json are decoded as JSON, everything else as YAML.
func loadReport(path string) (*extract.CrashReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var report extract.CrashReport
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &report)
	} else {
		err = yaml.Unmarshal(data, &report)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &report, nil
}
