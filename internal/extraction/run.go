package extraction

import (
	"context"
	"errors"
	"time"
)

// Schema names the output schema of an extraction call.
type Schema string

const (
	SchemaExpense Schema = "expense"
	SchemaBudget  Schema = "budget"
)

// Outcome records which tier produced the result of a call.
type Outcome string

const (
	OutcomeModel    Outcome = "model"
	OutcomeFallback Outcome = "fallback"
	OutcomeError    Outcome = "error"
)

// Run describes one finished extraction call.
type Run struct {
	RunID          string
	Schema         Schema
	Outcome        Outcome
	ErrorKind      ErrorKind // empty unless Outcome == OutcomeError
	Error          string
	FallbackReason string // why the model response was rejected
	ModelName      string
	Transcript     string
	RawResponse    string
	StartedAt      time.Time
	Duration       time.Duration
}

// RunRecorder receives every finished Run. Recording errors are logged by the
// engine and never change the extraction result.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// MultiRecorder fans a Run out to several recorders.
type MultiRecorder []RunRecorder

// RecordRun implements RunRecorder. Every recorder is called even if an
// earlier one fails.
func (m MultiRecorder) RecordRun(ctx context.Context, run Run) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordRun(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
