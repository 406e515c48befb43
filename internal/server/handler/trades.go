package handler

import (
	"log/slog"
	"net/http"

	"polyfolio/internal/domain"
)

// TradeHandler serves the mirrored trade history.
type TradeHandler struct {
	trades domain.TradeStore
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades domain.TradeStore, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

// listTradesResponse wraps the list trades response.
type listTradesResponse struct {
	Trades []domain.TradeRecord `json:"trades"`
}

// ListTrades returns the user's mirrored trades, newest first.
// GET /api/users/{addr}/trades?limit=50&offset=0
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, "user address required")
		return
	}

	trades, err := h.trades.ListByUser(r.Context(), user, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	if trades == nil {
		trades = []domain.TradeRecord{}
	}

	writeJSON(w, http.StatusOK, listTradesResponse{Trades: trades})
}
