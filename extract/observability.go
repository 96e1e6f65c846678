// File: extract/observability.go
package extract

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// tracerName is the OTel tracer name for report builds.
const tracerName = "crashscope.extract"

// Build outcomes used as metric labels.
const (
	outcomeComplete = "complete"
	outcomeDegraded = "degraded"
	outcomeFailed   = "failed"
)

// Package-level Prometheus metrics for report builds.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// buildsTotal counts finished builds.
	//
	// Labels:
	//   - outcome: "complete", "degraded" or "failed"
	buildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crashscope",
			Subsystem: "extract",
			Name:      "builds_total",
			Help:      "Total number of crash report builds by outcome.",
		},
		[]string{"outcome"},
	)

	// buildDuration measures how long a build took, including failures.
	buildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crashscope",
			Subsystem: "extract",
			Name:      "build_duration_seconds",
			Help:      "Duration of crash report builds in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// reportFrames observes the frame count of each assembled report.
	reportFrames = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crashscope",
			Subsystem: "extract",
			Name:      "report_frames",
			Help:      "Number of frames per assembled crash report.",
			Buckets:   prometheus.LinearBuckets(0, 4, 9),
		},
	)

	// symbolFailuresTotal counts symbols emitted with the failure flag.
	symbolFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crashscope",
			Subsystem: "extract",
			Name:      "symbol_failures_total",
			Help:      "Total symbols whose type or value could not be resolved.",
		},
	)
)

// recordBuild records the metrics of a finished build. report is nil when
// the build failed.
func recordBuild(report *CrashReport, duration time.Duration) {
	buildDuration.Observe(duration.Seconds())
	if report == nil {
		buildsTotal.WithLabelValues(outcomeFailed).Inc()
		return
	}

	outcome := outcomeComplete
	if report.Degraded {
		outcome = outcomeDegraded
	}
	buildsTotal.WithLabelValues(outcome).Inc()
	reportFrames.Observe(float64(len(report.Frames)))

	for _, f := range report.Frames {
		for _, s := range f.Symbols {
			if s.Failed {
				symbolFailuresTotal.Inc()
			}
		}
	}
}
