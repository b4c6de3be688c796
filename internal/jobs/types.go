package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExtract turns one transcript into a structured record.
	JobTypeExtract JobType = "extract"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ErrJobNotFound is returned by a JobStore when no job has the given ID.
var ErrJobNotFound = errors.New("job not found")

// ExtractionJob is an asynchronous extraction of one transcript.
type ExtractionJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Schema is "expense" or "budget".
	Schema string `json:"schema"`

	// Transcript is the finalized utterance to extract from.
	Transcript string `json:"transcript"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// Result holds the extracted record once the job completes.
	Result json.RawMessage `json:"result,omitempty"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// ErrorKind is the extraction error kind of the last failure.
	ErrorKind string `json:"error_kind,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExtractionJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ExtractionJob) GetType() JobType {
	return JobTypeExtract
}

// GetStatus implements the Job interface.
func (j *ExtractionJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishExtraction enqueues an extraction job.
	PublishExtraction(ctx context.Context, job *ExtractionJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error is retried only when
// the queue's retry policy accepts it.
type JobHandler func(ctx context.Context, job *ExtractionJob) (json.RawMessage, error)

// RetryPolicy decides whether a failed job is worth another attempt.
type RetryPolicy func(err error) bool

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ExtractionJob) error

	// GetJob retrieves a job by ID. Returns ErrJobNotFound if absent.
	GetJob(ctx context.Context, jobID string) (*ExtractionJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractionJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Schema filters jobs by extraction schema.
	Schema string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
