package domain

import "time"

// SyncStatus is the advisory state of a user's sync cycle.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncRunning SyncStatus = "running"
	SyncError   SyncStatus = "error"
)

// Watermark is the (timestamp, id) of the most recently ingested trade for a
// user. It is the sole authority for "is this trade already ingested" and
// only ever moves forward.
type Watermark struct {
	TradeAtMS int64
	TradeID   string
}

// IsZero reports whether no watermark has been recorded yet.
func (w Watermark) IsZero() bool {
	return w.TradeAtMS == 0 && w.TradeID == ""
}

// Before reports whether the watermark orders strictly before (tsMS, id):
// timestamp primary, trade id as lexicographic tiebreaker. A trade is still
// missing from the mirror exactly when its pair orders after the watermark.
func (w Watermark) Before(tsMS int64, id string) bool {
	if w.TradeAtMS != tsMS {
		return w.TradeAtMS < tsMS
	}
	return w.TradeID < id
}

// Time returns the watermark timestamp as a UTC time.
func (w Watermark) Time() time.Time {
	return time.UnixMilli(w.TradeAtMS).UTC()
}

// SyncMeta is the per-user sync bookkeeping row. The watermark fields are
// cached here for fast dashboard reads; user_trade_sync remains the durable
// copy. Created implicitly on first view or sync, never deleted.
type SyncMeta struct {
	UserAddress  string     `json:"user_address"`
	Status       SyncStatus `json:"sync_status"`
	LastViewedAt *time.Time `json:"last_viewed_at"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	LastTradeAt  *time.Time `json:"last_trade_at"`
	LastTradeID  string     `json:"last_trade_id"`
	ErrorMsg     string     `json:"error_msg,omitempty"`
}
