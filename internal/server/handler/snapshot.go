package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"polyfolio/internal/domain"
)

// PortfolioSource fetches live portfolio data from the upstream API. The
// polymarket DataClient satisfies it.
type PortfolioSource interface {
	Positions(ctx context.Context, user string) ([]map[string]any, error)
	PortfolioValue(ctx context.Context, user string) (float64, error)
}

// Syncer triggers a sync cycle for a user. The sync Controller satisfies it.
type Syncer interface {
	Sync(ctx context.Context, user string) error
}

// Resync cadence tiers, keyed by how recently the user viewed the dashboard.
// Active users get fresh data quickly; dormant users resync on every return
// visit.
const (
	activeViewWindow  = 24 * time.Hour
	activeSyncEvery   = 15 * time.Minute
	recentViewWindow  = 7 * 24 * time.Hour
	recentSyncEvery   = 6 * time.Hour
	portfolioCacheTTL = 5 * time.Minute
)

// SnapshotHandler serves the combined dashboard snapshot: mirrored trades,
// live portfolio data, and sync state, with an opportunistic background sync
// when the mirror looks stale.
type SnapshotHandler struct {
	trades    domain.TradeStore
	meta      domain.SyncMetaStore
	cache     domain.PortfolioCache
	portfolio PortfolioSource
	syncer    Syncer
	logger    *slog.Logger
}

// NewSnapshotHandler creates a SnapshotHandler. cache may be nil, in which
// case portfolio data is fetched from upstream on every request.
func NewSnapshotHandler(
	trades domain.TradeStore,
	meta domain.SyncMetaStore,
	cache domain.PortfolioCache,
	portfolio PortfolioSource,
	syncer Syncer,
	logger *slog.Logger,
) *SnapshotHandler {
	return &SnapshotHandler{
		trades:    trades,
		meta:      meta,
		cache:     cache,
		portfolio: portfolio,
		syncer:    syncer,
		logger:    logger,
	}
}

// snapshotResponse is the combined dashboard payload.
type snapshotResponse struct {
	User          string               `json:"user"`
	Sync          domain.SyncMeta      `json:"sync"`
	Trades        []domain.TradeRecord `json:"trades"`
	Positions     []map[string]any     `json:"positions"`
	Value         float64              `json:"portfolio_value"`
	SyncTriggered bool                 `json:"sync_triggered"`
}

// GetSnapshot returns the user's dashboard snapshot and kicks off a
// background sync when the mirror is due for one.
// GET /api/users/{addr}/snapshot
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userParam(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, "user address required")
		return
	}

	meta, err := h.meta.Get(ctx, user)
	if err != nil {
		h.logger.ErrorContext(ctx, "handler: get sync meta failed",
			slog.String("user", user), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load sync state")
		return
	}

	// The view stamp feeds the next request's resync decision; this request
	// decides on the stamp recorded before it.
	if err := h.meta.TouchViewed(ctx, user); err != nil {
		h.logger.WarnContext(ctx, "handler: touch viewed failed",
			slog.String("user", user), slog.String("error", err.Error()))
	}

	trades, err := h.trades.ListByUser(ctx, user, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "handler: list trades failed",
			slog.String("user", user), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load trades")
		return
	}
	if trades == nil {
		trades = []domain.TradeRecord{}
	}

	positions, value, cachedPositions := h.portfolioData(ctx, user)

	// An empty mirror with no cached portfolio means we hold nothing for this
	// user; treat that like a missed sync even when the cadence says fresh.
	needsSync := syncDue(meta, time.Now().UTC()) ||
		(len(trades) == 0 && !cachedPositions)

	triggered := false
	if h.syncer != nil && meta.Status != domain.SyncRunning && needsSync {
		triggered = true
		go func() {
			// Detached from the request: the dashboard response never waits
			// for ingestion.
			if err := h.syncer.Sync(context.Background(), user); err != nil {
				h.logger.Warn("handler: background sync failed",
					slog.String("user", user), slog.String("error", err.Error()))
			}
		}()
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		User:          user,
		Sync:          meta,
		Trades:        trades,
		Positions:     positions,
		Value:         value,
		SyncTriggered: triggered,
	})
}

// portfolioData returns the user's positions and valuation, serving from the
// cache when fresh and falling back to upstream. Upstream failures degrade to
// empty data rather than failing the whole snapshot. The boolean reports
// whether the positions were served from the cache.
func (h *SnapshotHandler) portfolioData(ctx context.Context, user string) ([]map[string]any, float64, bool) {
	positions, cached := h.positionsData(ctx, user)
	value := h.valueData(ctx, user)
	return positions, value, cached
}

func (h *SnapshotHandler) positionsData(ctx context.Context, user string) ([]map[string]any, bool) {
	if h.cache != nil {
		snap, err := h.cache.GetPositions(ctx, user)
		if err == nil && time.Since(snap.FetchedAt) < portfolioCacheTTL {
			if list, ok := positionsFromPayload(snap.Payload); ok {
				return list, true
			}
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			h.logger.WarnContext(ctx, "handler: positions cache read failed",
				slog.String("user", user), slog.String("error", err.Error()))
		}
	}

	positions, err := h.portfolio.Positions(ctx, user)
	if err != nil {
		h.logger.WarnContext(ctx, "handler: upstream positions fetch failed",
			slog.String("user", user), slog.String("error", err.Error()))
		return []map[string]any{}, false
	}
	if positions == nil {
		positions = []map[string]any{}
	}

	if h.cache != nil {
		snap := domain.PositionsSnapshot{
			Payload:   map[string]any{"positions": positions},
			FetchedAt: time.Now().UTC(),
		}
		if err := h.cache.SetPositions(ctx, user, snap); err != nil {
			h.logger.WarnContext(ctx, "handler: positions cache write failed",
				slog.String("user", user), slog.String("error", err.Error()))
		}
	}
	return positions, false
}

func (h *SnapshotHandler) valueData(ctx context.Context, user string) float64 {
	if h.cache != nil {
		snap, err := h.cache.GetValue(ctx, user)
		if err == nil && time.Since(snap.FetchedAt) < portfolioCacheTTL {
			return snap.PortfolioValue
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			h.logger.WarnContext(ctx, "handler: value cache read failed",
				slog.String("user", user), slog.String("error", err.Error()))
		}
	}

	value, err := h.portfolio.PortfolioValue(ctx, user)
	if err != nil {
		h.logger.WarnContext(ctx, "handler: upstream value fetch failed",
			slog.String("user", user), slog.String("error", err.Error()))
		return 0
	}

	if h.cache != nil {
		snap := domain.ValueSnapshot{
			PortfolioValue: value,
			Currency:       "USD",
			FetchedAt:      time.Now().UTC(),
		}
		if err := h.cache.SetValue(ctx, user, snap); err != nil {
			h.logger.WarnContext(ctx, "handler: value cache write failed",
				slog.String("user", user), slog.String("error", err.Error()))
		}
	}
	return value
}

// positionsFromPayload unwraps a cached positions list. The cache roundtrips
// through JSON, so elements arrive as []any.
func positionsFromPayload(payload map[string]any) ([]map[string]any, bool) {
	switch list := payload["positions"].(type) {
	case []map[string]any:
		return list, true
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// syncDue decides whether the user's mirror should be refreshed, based on how
// recently they viewed the dashboard and how long ago the last sync finished.
func syncDue(meta domain.SyncMeta, now time.Time) bool {
	if meta.LastSyncedAt == nil {
		return true
	}
	sinceSync := now.Sub(*meta.LastSyncedAt)

	if meta.LastViewedAt == nil {
		return true
	}
	sinceView := now.Sub(*meta.LastViewedAt)

	switch {
	case sinceView <= activeViewWindow:
		return sinceSync > activeSyncEvery
	case sinceView <= recentViewWindow:
		return sinceSync > recentSyncEvery
	default:
		return true
	}
}
