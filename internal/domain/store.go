package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// TradeStore persists mirrored trade records. UpsertBulk must be idempotent:
// re-upserting the same trade_id leaves a single stored row.
type TradeStore interface {
	UpsertBulk(ctx context.Context, rows []TradeRecord) (int64, error)
	ListByUser(ctx context.Context, user string, opts ListOpts) ([]TradeRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradeRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// MarketStore persists mirrored market metadata.
type MarketStore interface {
	UpsertBulk(ctx context.Context, rows []Market) (int64, error)
	GetByID(ctx context.Context, id string) (Market, error)
	// FindUnknownIDs returns the subset of ids with no local row.
	FindUnknownIDs(ctx context.Context, ids []string) ([]string, error)
	// PickStaleOpenIDs returns ids of open/pending markets whose metadata has
	// not been refreshed within staleFor.
	PickStaleOpenIDs(ctx context.Context, staleFor time.Duration) ([]string, error)
}

// SyncMetaStore persists per-user watermarks and sync bookkeeping. All write
// operations are assumed atomic per call (transactional SQL functions).
type SyncMetaStore interface {
	Get(ctx context.Context, user string) (SyncMeta, error)
	// Watermark returns the durable watermark, or a zero Watermark when the
	// user has never completed a sync.
	Watermark(ctx context.Context, user string) (Watermark, error)
	// SetWatermark advances the durable watermark and its cached copy.
	SetWatermark(ctx context.Context, user string, wm Watermark) error
	// SetSynced records the outcome of a sync cycle. A zero wm clears the
	// cached watermark fields; errMsg is empty on success.
	SetSynced(ctx context.Context, user string, syncedAt time.Time, wm Watermark, status SyncStatus, errMsg string) error
	TouchViewed(ctx context.Context, user string) error
}

// Archiver moves aged trade rows from the hot store to cold storage.
type Archiver interface {
	ArchiveTrades(ctx context.Context, before time.Time) (int64, error)
}
