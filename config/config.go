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

// File: config/config.go
// Purpose: Loads crashscope settings from an optional YAML file. Defaults are
// applied first, then the file; command line flags override the result in
// the cmd package. The merged configuration is validated before use.

// Package config holds the crashscope configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/edespino/crashscope/extract"
)

// EnvConfigFile names the environment variable holding the default config path.
const EnvConfigFile = "CRASHSCOPE_CONFIG"

// Config holds all tunables of a crashscope run.
type Config struct {
	Backend    string `yaml:"backend" validate:"oneof=gdb delve snapshot"`
	GDBPath    string `yaml:"gdb_path"`
	SourceRoot string `yaml:"source_root"`

	MaxDepth       int `yaml:"max_depth" validate:"min=1,max=256"`
	MaxSymbols     int `yaml:"max_symbols" validate:"min=1,max=1024"`
	MaxTextLen     int `yaml:"max_text_len" validate:"min=16,max=65536"`
	MaxReportBytes int `yaml:"max_report_bytes" validate:"min=1024"`
	SourceFrames   int `yaml:"source_frames" validate:"min=-1,max=64"`

	// Timeout bounds one report build; zero means no limit.
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`

	Format string `yaml:"format" validate:"oneof=yaml json text"`
	// OutputDir receives one file per report; empty writes to stdout.
	OutputDir string `yaml:"output_dir"`
	MaxCores  int    `yaml:"max_cores" validate:"min=0"`
	// Parallel is how many targets are analyzed at once.
	Parallel int `yaml:"parallel" validate:"min=1,max=64"`
}

// Default returns the built-in configuration.
func Default() Config {
	limits := extract.DefaultOptions()
	return Config{
		Backend:        "gdb",
		GDBPath:        "gdb",
		MaxDepth:       limits.MaxDepth,
		MaxSymbols:     limits.MaxSymbols,
		MaxTextLen:     limits.MaxTextLen,
		MaxReportBytes: limits.MaxReportBytes,
		SourceFrames:   limits.SourceFrames,
		Timeout:        2 * time.Minute,
		Format:         "yaml",
		Parallel:       4,
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path falls back to $CRASHSCOPE_CONFIG, and to the defaults alone when
// that is unset too.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// ExtractOptions converts the limits into extraction options.
func (c Config) ExtractOptions(logger *slog.Logger) extract.Options {
	return extract.Options{
		MaxDepth:       c.MaxDepth,
		MaxSymbols:     c.MaxSymbols,
		MaxTextLen:     c.MaxTextLen,
		MaxReportBytes: c.MaxReportBytes,
		SourceFrames:   c.SourceFrames,
		SourceRoot:     c.SourceRoot,
		Logger:         logger,
	}
}
