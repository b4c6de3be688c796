package extraction

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AsyncRecorder hands runs to a background goroutine so slow sinks do not
// delay extraction results. Runs are dropped, and logged, when the buffer is full.
type AsyncRecorder struct {
	next    RunRecorder
	runs    chan Run
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncRecorder starts a goroutine forwarding runs to next. Each forwarded
// call gets its own timeout, detached from the request that produced the run.
func NewAsyncRecorder(next RunRecorder, buffer int, timeout time.Duration, log zerolog.Logger) *AsyncRecorder {
	r := &AsyncRecorder{
		next:    next,
		runs:    make(chan Run, buffer),
		timeout: timeout,
		log:     log,
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// RecordRun implements RunRecorder. It never blocks.
func (r *AsyncRecorder) RecordRun(_ context.Context, run Run) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.log.Warn().Str("run_id", run.RunID).Msg("Run recorder closed, dropping run")
		return nil
	}

	select {
	case r.runs <- run:
	default:
		r.log.Warn().Str("run_id", run.RunID).Msg("Run recorder buffer full, dropping run")
	}
	return nil
}

func (r *AsyncRecorder) loop() {
	defer close(r.done)
	for run := range r.runs {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.next.RecordRun(ctx, run); err != nil {
			r.log.Error().Err(err).Str("run_id", run.RunID).Msg("Failed to record extraction run")
		}
		cancel()
	}
}

// Close stops accepting runs and waits until buffered runs are written or ctx is done.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.runs)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ RunRecorder = (*AsyncRecorder)(nil)
