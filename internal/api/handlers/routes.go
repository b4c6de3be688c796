package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/voice-budget/internal/api/middleware"
	"github.com/dvloznov/voice-budget/internal/jobs"
)

// NewRouter registers every API endpoint on a new ServeMux.
func NewRouter(engine Engine, store jobs.JobStore, publisher jobs.Publisher, log zerolog.Logger) *http.ServeMux {
	configHandler := NewConfigHandler(engine, log)
	extractionHandler := NewExtractionHandler(engine, log)
	jobsHandler := NewJobsHandler(store, publisher, log)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/config", configHandler.GetConfig)
	mux.HandleFunc("POST /api/config", configHandler.SetConfig)

	mux.HandleFunc("POST /api/expenses/extract", extractionHandler.ExtractExpense)
	mux.HandleFunc("POST /api/budgets/extract", extractionHandler.ExtractBudget)

	mux.HandleFunc("POST /api/jobs", jobsHandler.CreateJob)
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]any{
			"status": "healthy",
			"ready":  engine.IsReady(),
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return mux
}
