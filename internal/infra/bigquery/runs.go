package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/voice-budget/internal/extraction"
)

// maxTextLen caps free-text columns.
const maxTextLen = 2000

// ExtractionRunRow is one row of the extraction_runs audit table.
type ExtractionRunRow struct {
	RunID   string `bigquery:"run_id"`  // REQUIRED
	Schema  string `bigquery:"schema"`  // REQUIRED: expense | budget
	Outcome string `bigquery:"outcome"` // REQUIRED: model | fallback | error

	ErrorKind      bigquery.NullString `bigquery:"error_kind"`      // NULLABLE
	ErrorMessage   bigquery.NullString `bigquery:"error_message"`   // NULLABLE
	FallbackReason bigquery.NullString `bigquery:"fallback_reason"` // NULLABLE
	ModelName      bigquery.NullString `bigquery:"model_name"`      // NULLABLE, empty when unconfigured

	Transcript       string              `bigquery:"transcript"`        // REQUIRED, may be empty
	TranscriptLength int64               `bigquery:"transcript_length"` // REQUIRED
	RawResponse      bigquery.NullString `bigquery:"raw_response"`      // NULLABLE

	StartedTS  time.Time `bigquery:"started_ts"`  // REQUIRED, partition column
	DurationMS int64     `bigquery:"duration_ms"` // REQUIRED
}

// NewExtractionRunRow converts a finished Run into its audit row.
func NewExtractionRunRow(run extraction.Run) *ExtractionRunRow {
	return &ExtractionRunRow{
		RunID:            run.RunID,
		Schema:           string(run.Schema),
		Outcome:          string(run.Outcome),
		ErrorKind:        nullString(string(run.ErrorKind)),
		ErrorMessage:     nullString(truncate(run.Error)),
		FallbackReason:   nullString(truncate(run.FallbackReason)),
		ModelName:        nullString(run.ModelName),
		Transcript:       truncate(run.Transcript),
		TranscriptLength: int64(len(run.Transcript)),
		RawResponse:      nullString(truncate(run.RawResponse)),
		StartedTS:        run.StartedAt.UTC(),
		DurationMS:       run.Duration.Milliseconds(),
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func truncate(s string) string {
	if len(s) > maxTextLen {
		return s[:maxTextLen]
	}
	return s
}
