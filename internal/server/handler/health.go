package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	logger  *slog.Logger
	started time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logger, started: time.Now()}
}

// HealthCheck reports that the server is alive.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "bondgame",
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
