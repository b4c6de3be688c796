package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsRecorder(reg)
	ctx := context.Background()

	require.NoError(t, m.RecordRun(ctx, Run{Schema: SchemaExpense, Outcome: OutcomeModel, Duration: time.Second}))
	require.NoError(t, m.RecordRun(ctx, Run{Schema: SchemaExpense, Outcome: OutcomeFallback}))
	require.NoError(t, m.RecordRun(ctx, Run{Schema: SchemaBudget, Outcome: OutcomeError, ErrorKind: KindServiceCallFailed}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("expense", "model")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("expense", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("budget", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("budget", "service_call_failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.errors.WithLabelValues("expense", "service_call_failed")))

	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

type failingRecorder struct{ err error }

func (f failingRecorder) RecordRun(context.Context, Run) error { return f.err }

func TestMultiRecorder(t *testing.T) {
	first := &mockRecorder{}
	last := &mockRecorder{}
	boom := errors.New("boom")

	multi := MultiRecorder{first, nil, failingRecorder{err: boom}, last}
	err := multi.RecordRun(context.Background(), Run{RunID: "abc"})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, first.runs, 1)
	assert.Len(t, last.runs, 1, "later recorders still run after a failure")
	assert.NoError(t, MultiRecorder{}.RecordRun(context.Background(), Run{}))
}
