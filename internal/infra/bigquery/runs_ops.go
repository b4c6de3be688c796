package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// TableRef identifies the audit table.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

func (t TableRef) String() string {
	return fmt.Sprintf("`%s.%s.%s`", t.ProjectID, t.DatasetID, t.TableID)
}

// insertRunSQL builds the DML insert for table.
func insertRunSQL(table TableRef) string {
	return `
		INSERT INTO ` + table.String() + ` (
			run_id, schema, outcome,
			error_kind, error_message, fallback_reason, model_name,
			transcript, transcript_length, raw_response,
			started_ts, duration_ms
		)
		VALUES (
			@run_id, @schema, @outcome,
			@error_kind, @error_message, @fallback_reason, @model_name,
			@transcript, @transcript_length, @raw_response,
			@started_ts, @duration_ms
		)
	`
}

func runParameters(row *ExtractionRunRow) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "run_id", Value: row.RunID},
		{Name: "schema", Value: row.Schema},
		{Name: "outcome", Value: row.Outcome},
		{Name: "error_kind", Value: row.ErrorKind},
		{Name: "error_message", Value: row.ErrorMessage},
		{Name: "fallback_reason", Value: row.FallbackReason},
		{Name: "model_name", Value: row.ModelName},
		{Name: "transcript", Value: row.Transcript},
		{Name: "transcript_length", Value: row.TranscriptLength},
		{Name: "raw_response", Value: row.RawResponse},
		{Name: "started_ts", Value: row.StartedTS},
		{Name: "duration_ms", Value: row.DurationMS},
	}
}

// InsertRunWithClient inserts a single ExtractionRunRow using the provided
// BigQuery client. Uses DML INSERT to avoid streaming buffer issues.
func InsertRunWithClient(ctx context.Context, client *bigquery.Client, table TableRef, row *ExtractionRunRow) error {
	q := client.Query(insertRunSQL(table))
	q.Parameters = runParameters(row)

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertRun: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertRun: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertRun: job error: %w", err)
	}

	return nil
}

// runTableMetadata describes the audit table, day-partitioned on started_ts.
func runTableMetadata() (*bigquery.TableMetadata, error) {
	schema, err := bigquery.InferSchema(ExtractionRunRow{})
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}
	return &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "started_ts",
		},
		Description: "Voice extraction runs: which tier answered and why.",
	}, nil
}
