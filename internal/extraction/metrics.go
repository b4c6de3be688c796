package extraction

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRecorder exports extraction runs as Prometheus metrics.
type MetricsRecorder struct {
	runs     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsRecorder registers the extraction collectors with reg.
func NewMetricsRecorder(reg prometheus.Registerer) *MetricsRecorder {
	factory := promauto.With(reg)
	return &MetricsRecorder{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebudget_extraction_runs_total",
			Help: "Extraction calls by schema and the tier that produced the result.",
		}, []string{"schema", "outcome"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebudget_extraction_errors_total",
			Help: "Extraction calls that returned an error, by kind.",
		}, []string{"schema", "kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicebudget_extraction_duration_seconds",
			Help:    "Wall time of extraction calls.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"schema"}),
	}
}

// RecordRun implements RunRecorder.
func (m *MetricsRecorder) RecordRun(_ context.Context, run Run) error {
	schema := string(run.Schema)
	m.runs.WithLabelValues(schema, string(run.Outcome)).Inc()
	if run.Outcome == OutcomeError {
		m.errors.WithLabelValues(schema, string(run.ErrorKind)).Inc()
	}
	m.duration.WithLabelValues(schema).Observe(run.Duration.Seconds())
	return nil
}

var _ RunRecorder = (*MetricsRecorder)(nil)
