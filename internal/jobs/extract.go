package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dvloznov/voice-budget/internal/domain"
	"github.com/dvloznov/voice-budget/internal/extraction"
)

// Extractor is the part of extraction.Engine the job handler needs.
type Extractor interface {
	ExtractExpense(ctx context.Context, transcript string) (domain.ExpenseRecord, error)
	ExtractBudget(ctx context.Context, transcript string) (domain.BudgetPlan, error)
}

// ValidSchema reports whether schema names an extraction a job can run.
func ValidSchema(schema string) bool {
	switch extraction.Schema(schema) {
	case extraction.SchemaExpense, extraction.SchemaBudget:
		return true
	}
	return false
}

// NewExtractionHandler returns a JobHandler that runs the job's extraction and
// returns the record as JSON. Extraction errors are returned as is so the
// queue's retry policy can classify them.
func NewExtractionHandler(ex Extractor) JobHandler {
	return func(ctx context.Context, job *ExtractionJob) (json.RawMessage, error) {
		var (
			result any
			err    error
		)
		switch extraction.Schema(job.Schema) {
		case extraction.SchemaExpense:
			result, err = ex.ExtractExpense(ctx, job.Transcript)
		case extraction.SchemaBudget:
			result, err = ex.ExtractBudget(ctx, job.Transcript)
		default:
			return nil, fmt.Errorf("unknown schema %q", job.Schema)
		}
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal %s result: %w", job.Schema, err)
		}
		return data, nil
	}
}
