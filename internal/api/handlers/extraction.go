package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/voice-budget/internal/api/middleware"
)

// ExtractionHandler handles synchronous extraction endpoints.
type ExtractionHandler struct {
	engine Engine
	log    zerolog.Logger
}

// NewExtractionHandler creates a new extraction handler.
func NewExtractionHandler(engine Engine, log zerolog.Logger) *ExtractionHandler {
	return &ExtractionHandler{
		engine: engine,
		log:    log,
	}
}

type transcriptRequest struct {
	Transcript string `json:"transcript"`
}

// ExtractExpense handles POST /api/expenses/extract
func (h *ExtractionHandler) ExtractExpense(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.engine.ExtractExpense(r.Context(), req.Transcript)
	if err != nil {
		writeExtractionError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"expense": rec,
		"summary": rec.Summary(),
	})
}

// ExtractBudget handles POST /api/budgets/extract
func (h *ExtractionHandler) ExtractBudget(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	plan, err := h.engine.ExtractBudget(r.Context(), req.Transcript)
	if err != nil {
		writeExtractionError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"budget":        plan,
		"total_planned": plan.TotalPlanned(),
	})
}
