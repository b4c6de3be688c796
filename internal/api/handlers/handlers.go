// Package handlers implements the HTTP endpoints of the voice budget API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dvloznov/voice-budget/internal/api/middleware"
	"github.com/dvloznov/voice-budget/internal/domain"
	"github.com/dvloznov/voice-budget/internal/extraction"
)

// maxBodyBytes bounds request bodies; transcripts are single utterances.
const maxBodyBytes = 64 << 10

// Engine is the extraction surface used by the handlers.
type Engine interface {
	Configure(ctx context.Context, credential string) bool
	IsReady() bool
	ExtractExpense(ctx context.Context, transcript string) (domain.ExpenseRecord, error)
	ExtractBudget(ctx context.Context, transcript string) (domain.BudgetPlan, error)
}

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// writeExtractionError maps extraction failures to HTTP statuses.
func writeExtractionError(w http.ResponseWriter, err error) {
	kind, _ := extraction.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case extraction.KindServiceNotConfigured:
		status = http.StatusPreconditionFailed
	case extraction.KindServiceCallFailed:
		status = http.StatusBadGateway
	}

	middleware.WriteJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}
