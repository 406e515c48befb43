package domain

import (
	"context"
	"time"
)

// PositionsSnapshot is the latest cached positions payload for a user.
type PositionsSnapshot struct {
	Payload   map[string]any `json:"data"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// ValueSnapshot is the latest cached portfolio valuation for a user.
type ValueSnapshot struct {
	PortfolioValue float64   `json:"portfolio_value"`
	Currency       string    `json:"currency"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// PortfolioCache stores the per-user positions and value snapshots served by
// the snapshot read path. Getters return ErrNotFound when nothing is cached.
type PortfolioCache interface {
	SetPositions(ctx context.Context, user string, snap PositionsSnapshot) error
	GetPositions(ctx context.Context, user string) (PositionsSnapshot, error)
	SetValue(ctx context.Context, user string, snap ValueSnapshot) error
	GetValue(ctx context.Context, user string) (ValueSnapshot, error)
}

// SyncLocker provides best-effort cross-process mutual exclusion for per-user
// sync cycles. Acquire returns ErrLockHeld when another holder owns the key;
// the returned release function is safe to call more than once.
type SyncLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
