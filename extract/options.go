// File: extract/options.go
package extract

import "log/slog"

// Defaults applied to zero Options fields.
const (
	DefaultMaxDepth       = 20
	DefaultMaxSymbols     = 20
	DefaultMaxTextLen     = 1024
	DefaultMaxReportBytes = 64 * 1024
	DefaultSourceFrames   = 3
	DefaultSourceBefore   = 10
)

// Options bounds one build.
type Options struct {
	// MaxDepth is the maximum number of frames in a report.
	MaxDepth int
	// MaxSymbols is the maximum number of symbols kept per frame.
	MaxSymbols int
	// MaxTextLen caps each type name and value text, in bytes.
	MaxTextLen int
	// MaxReportBytes is the total budget for symbol and source text.
	MaxReportBytes int

	// SourceFrames is how many frames get source context. Negative disables it.
	SourceFrames int
	// SourceRoot is joined with relative source paths.
	SourceRoot string

	Logger *slog.Logger
}

// DefaultOptions returns the default limits.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxSymbols <= 0 {
		o.MaxSymbols = DefaultMaxSymbols
	}
	if o.MaxTextLen <= 0 {
		o.MaxTextLen = DefaultMaxTextLen
	}
	if o.MaxReportBytes <= 0 {
		o.MaxReportBytes = DefaultMaxReportBytes
	}
	if o.SourceFrames == 0 {
		o.SourceFrames = DefaultSourceFrames
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
