package telemetry

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/detreview/internal/annotations"
	"github.com/lehigh-university-libraries/detreview/internal/eval/metrics"
	"github.com/lehigh-university-libraries/detreview/internal/review"
)

func newTestMetrics(t *testing.T) *ComparisonMetrics {
	t.Helper()
	m, err := NewComparisonMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestRecordComparison(t *testing.T) {
	m := newTestMetrics(t)

	report := &review.Report{
		Result: &metrics.ComparisonResult{
			TP: []metrics.TruePositive{{DetectionID: "a"}},
			FP: []metrics.FalsePositive{{DetectionID: "b"}, {DetectionID: "c"}},
			FN: []metrics.FalseNegative{},
		},
		GTDiagnostics:        []string{"line 2: expected 5 fields, got 3"},
		DetectionDiagnostics: []string{},
	}
	m.RecordComparison(report, nil, 3*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.comparisonsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verdictsTotal.WithLabelValues("tp")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.verdictsTotal.WithLabelValues("fp")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.verdictsTotal.WithLabelValues("fn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.parseDiagnosticsTotal.WithLabelValues("gt")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.comparisonDuration))
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: OutcomeSuccess},
		{name: "unreadable", err: fmt.Errorf("could not read GT file: %w", annotations.ErrUnreadablePayload), want: OutcomeUnreadablePayload},
		{name: "threshold", err: review.ErrInvalidThreshold, want: OutcomeInvalidInput},
		{name: "format", err: annotations.ErrUnsupportedFormat, want: OutcomeInvalidInput},
		{name: "image size", err: annotations.ErrInvalidImageSize, want: OutcomeInvalidInput},
		{name: "other", err: errors.New("boom"), want: OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcome(tt.err))
		})
	}
}

func TestRecordFailedComparison(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordComparison(nil, review.ErrInvalidThreshold, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.comparisonsTotal.WithLabelValues(OutcomeInvalidInput)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.verdictsTotal.WithLabelValues("tp")))
}

func TestHandler(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordComparison(nil, nil, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `detreview_comparisons_total{outcome="success"} 1`))
	assert.Contains(t, string(body), "detreview_comparison_duration_seconds_bucket")
}

func TestDoubleRegistrationFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewComparisonMetrics(registry)
	require.NoError(t, err)
	_, err = NewComparisonMetrics(registry)
	assert.Error(t, err)
}
