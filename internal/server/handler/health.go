package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler reports service liveness for load balancers and uptime
// probes. It deliberately checks nothing downstream; the service can serve
// mirrored data even when upstream or optional subsystems are degraded.
type HealthHandler struct {
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// HealthCheck reports that the process is up.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "polyfolio",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
