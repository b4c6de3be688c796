package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/voice-budget/internal/api/middleware"
	"github.com/dvloznov/voice-budget/internal/logger"
)

// ConfigHandler exposes the extraction service credential gate.
type ConfigHandler struct {
	engine Engine
	log    zerolog.Logger
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(engine Engine, log zerolog.Logger) *ConfigHandler {
	return &ConfigHandler{
		engine: engine,
		log:    log,
	}
}

// GetConfig handles GET /api/config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{
		"ready": h.engine.IsReady(),
	})
}

// SetConfig handles POST /api/config. The key is never echoed or logged.
func (h *ConfigHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}

	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	if !h.engine.Configure(ctx, req.APIKey) {
		log := logger.FromContext(ctx, h.log)
		log.Warn().Msg("Rejected extraction service credential")
		middleware.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"ready": false,
			"error": "Could not configure extraction service with the provided API key",
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}
