// Package telemetry exposes Prometheus metrics for comparisons
package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
	"github.com/lehigh-university-libraries/detreview/internal/review"
)

// Outcome labels for comparisons_total
const (
	OutcomeSuccess           = "success"
	OutcomeInvalidInput      = "invalid_input"
	OutcomeUnreadablePayload = "unreadable_payload"
	OutcomeError             = "error"
)

// ComparisonMetrics contains Prometheus metrics for comparison runs
type ComparisonMetrics struct {
	registry *prometheus.Registry

	comparisonsTotal      *prometheus.CounterVec
	verdictsTotal         *prometheus.CounterVec
	parseDiagnosticsTotal *prometheus.CounterVec
	comparisonDuration    prometheus.Histogram
}

// NewComparisonMetrics creates and registers comparison metrics
func NewComparisonMetrics(registry *prometheus.Registry) (*ComparisonMetrics, error) {
	m := &ComparisonMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ComparisonMetrics) initMetrics() {
	m.comparisonsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "detreview",
			Name:      "comparisons_total",
			Help:      "Total number of comparisons by outcome",
		},
		[]string{"outcome"},
	)

	m.verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "detreview",
			Name:      "verdicts_total",
			Help:      "Total number of verdicts produced",
		},
		[]string{"kind"}, // kind: tp, fp, fn
	)

	m.parseDiagnosticsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "detreview",
			Name:      "parse_diagnostics_total",
			Help:      "Total number of records skipped or flagged while parsing",
		},
		[]string{"source"}, // source: gt, detections
	)

	m.comparisonDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "detreview",
			Name:      "comparison_duration_seconds",
			Help:      "Time taken to normalize, match and score one drawing",
			// 100µs to ~0.8s
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)
}

// Describe implements the Collector interface
func (m *ComparisonMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.comparisonsTotal.Describe(ch)
	m.verdictsTotal.Describe(ch)
	m.parseDiagnosticsTotal.Describe(ch)
	m.comparisonDuration.Describe(ch)
}

// Collect implements the Collector interface
func (m *ComparisonMetrics) Collect(ch chan<- prometheus.Metric) {
	m.comparisonsTotal.Collect(ch)
	m.verdictsTotal.Collect(ch)
	m.parseDiagnosticsTotal.Collect(ch)
	m.comparisonDuration.Collect(ch)
}

// RecordComparison records the outcome of one review.Run call. report may be
// nil when err is set.
func (m *ComparisonMetrics) RecordComparison(report *review.Report, err error, duration time.Duration) {
	m.comparisonsTotal.WithLabelValues(outcome(err)).Inc()
	m.comparisonDuration.Observe(duration.Seconds())

	if err != nil || report == nil {
		return
	}

	m.parseDiagnosticsTotal.WithLabelValues("gt").Add(float64(len(report.GTDiagnostics)))
	m.parseDiagnosticsTotal.WithLabelValues("detections").Add(float64(len(report.DetectionDiagnostics)))

	if r := report.Result; r != nil {
		m.verdictsTotal.WithLabelValues("tp").Add(float64(len(r.TP)))
		m.verdictsTotal.WithLabelValues("fp").Add(float64(len(r.FP)))
		m.verdictsTotal.WithLabelValues("fn").Add(float64(len(r.FN)))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, annotations.ErrUnreadablePayload):
		return OutcomeUnreadablePayload
	case errors.Is(err, review.ErrInvalidThreshold),
		errors.Is(err, annotations.ErrUnsupportedFormat),
		errors.Is(err, annotations.ErrInvalidImageSize):
		return OutcomeInvalidInput
	default:
		return OutcomeError
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *ComparisonMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
