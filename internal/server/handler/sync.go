package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// Repairer runs the overlap repair pass for a user.
type Repairer interface {
	RepairOverlap(ctx context.Context, user string) error
}

// SyncHandler serves the manual sync and repair triggers.
type SyncHandler struct {
	syncer   Syncer
	repairer Repairer
	logger   *slog.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(syncer Syncer, repairer Repairer, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{syncer: syncer, repairer: repairer, logger: logger}
}

// TriggerSync starts a sync cycle for the user in the background. Concurrent
// triggers for the same user collapse onto one cycle inside the controller.
// POST /api/users/{addr}/sync
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, "user address required")
		return
	}

	go func() {
		if err := h.syncer.Sync(context.Background(), user); err != nil {
			h.logger.Warn("handler: triggered sync failed",
				slog.String("user", user), slog.String("error", err.Error()))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "triggered",
		"user":   user,
	})
}

// TriggerRepair runs the overlap repair pass synchronously; it is bounded to
// a couple of pages, so the request stays short.
// POST /api/users/{addr}/repair
func (h *SyncHandler) TriggerRepair(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, "user address required")
		return
	}

	if err := h.repairer.RepairOverlap(r.Context(), user); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: overlap repair failed",
			slog.String("user", user), slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "overlap repair failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "repaired",
		"user":   user,
	})
}
