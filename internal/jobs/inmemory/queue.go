package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/voice-budget/internal/extraction"
	"github.com/dvloznov/voice-budget/internal/jobs"
)

const (
	defaultWorkers    = 5
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
)

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// Only failures accepted by the retry policy are re-enqueued; by default that
// is extraction.IsRetryable, so an unconfigured service fails immediately.
type Queue struct {
	jobChan   chan *jobs.ExtractionJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool

	workers    int
	maxRetries int
	backoff    time.Duration
	retryable  jobs.RetryPolicy
	log        zerolog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithWorkers sets the number of concurrent workers started by Start.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithMaxRetries sets the retry budget for jobs published without one.
func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n >= 0 {
			q.maxRetries = n
		}
	}
}

// WithBackoff sets the base delay; retry n waits n times this value.
func WithBackoff(d time.Duration) Option {
	return func(q *Queue) { q.backoff = d }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p jobs.RetryPolicy) Option {
	return func(q *Queue) { q.retryable = p }
}

// WithLogger sets the queue logger.
func WithLogger(log zerolog.Logger) Option {
	return func(q *Queue) { q.log = log }
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before PublishExtraction blocks.
func NewQueue(bufferSize int, store jobs.JobStore, opts ...Option) *Queue {
	q := &Queue{
		jobChan:    make(chan *jobs.ExtractionJob, bufferSize),
		closeChan:  make(chan struct{}),
		store:      store,
		workers:    defaultWorkers,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		retryable:  extraction.IsRetryable,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// PublishExtraction implements the Publisher interface.
// It assigns an ID, status and retry budget when missing, saves the job and enqueues it.
func (q *Queue) PublishExtraction(ctx context.Context, job *jobs.ExtractionJob) error {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.maxRetries
	}

	return q.enqueue(ctx, job)
}

// enqueue saves job and waits for buffer space until ctx is done or the queue
// stops. A job that could not be queued is saved as failed.
func (q *Queue) enqueue(ctx context.Context, job *jobs.ExtractionJob) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return fmt.Errorf("queue is closed")
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	// The worker owns the queued value; the caller keeps its own.
	queued := *job
	var err error
	select {
	case q.jobChan <- &queued:
		return nil
	case <-ctx.Done():
		err = fmt.Errorf("waiting for queue space: %w", ctx.Err())
	case <-q.closeChan:
		err = fmt.Errorf("queue is closed")
	}

	rejected := *job
	rejected.Status = jobs.JobStatusFailed
	rejected.Error = err.Error()
	q.save(context.WithoutCancel(ctx), &rejected)
	return err
}

// Start implements the Consumer interface.
// It starts the configured number of workers, each calling handler for one job at a time.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job and schedules a retry when the policy allows it.
func (q *Queue) processJob(ctx context.Context, job *jobs.ExtractionJob, handler jobs.JobHandler) {
	log := q.log.With().Str("job_id", job.JobID).Str("schema", job.Schema).Logger()

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	q.save(ctx, job)

	result, err := q.run(ctx, job, handler)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Result = result
		job.Error = ""
		job.ErrorKind = ""
		q.save(ctx, job)
		log.Debug().Msg("Job completed")
		return
	}

	job.Error = err.Error()
	job.ErrorKind = ""
	if kind, ok := extraction.KindOf(err); ok {
		job.ErrorKind = string(kind)
	}

	if !q.retryable(err) || job.RetryCount >= job.MaxRetries {
		job.Status = jobs.JobStatusFailed
		q.save(ctx, job)
		log.Warn().Err(err).Int("retry_count", job.RetryCount).Msg("Job failed")
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	q.save(ctx, job)

	backoff := time.Duration(job.RetryCount) * q.backoff
	log.Info().Err(err).Int("retry_count", job.RetryCount).Dur("backoff", backoff).Msg("Retrying job")

	retry := *job
	time.AfterFunc(backoff, func() {
		retry.Status = jobs.JobStatusPending
		retry.StartedAt = nil
		retry.CompletedAt = nil
		if err := q.enqueue(ctx, &retry); err != nil {
			log.Error().Err(err).Msg("Failed to re-enqueue job")
		}
	})
}

// run calls handler, converting a panic into a non-retryable failure.
func (q *Queue) run(ctx context.Context, job *jobs.ExtractionJob, handler jobs.JobHandler) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return handler(ctx, job)
}

func (q *Queue) save(ctx context.Context, job *jobs.ExtractionJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		q.log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
