package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"polyfolio/internal/domain"
)

// snapshotTTL bounds how long a cached portfolio snapshot may be served. The
// read path falls back to the upstream API on a miss, so expiry only costs a
// refetch.
const snapshotTTL = 30 * time.Minute

// PortfolioCache implements domain.PortfolioCache using Redis string keys
// holding JSON snapshots. Keys are "portfolio:positions:{user}" and
// "portfolio:value:{user}".
type PortfolioCache struct {
	rdb *redis.Client
}

// NewPortfolioCache creates a PortfolioCache backed by the given Client.
func NewPortfolioCache(c *Client) *PortfolioCache {
	return &PortfolioCache{rdb: c.Underlying()}
}

func positionsKey(user string) string {
	return "portfolio:positions:" + strings.ToLower(user)
}

func valueKey(user string) string {
	return "portfolio:value:" + strings.ToLower(user)
}

// SetPositions stores the user's latest positions snapshot.
func (pc *PortfolioCache) SetPositions(ctx context.Context, user string, snap domain.PositionsSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal positions for %s: %w", user, err)
	}
	if err := pc.rdb.Set(ctx, positionsKey(user), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis: set positions for %s: %w", user, err)
	}
	return nil
}

// GetPositions retrieves the user's latest positions snapshot. It returns
// domain.ErrNotFound when nothing is cached.
func (pc *PortfolioCache) GetPositions(ctx context.Context, user string) (domain.PositionsSnapshot, error) {
	data, err := pc.rdb.Get(ctx, positionsKey(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PositionsSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PositionsSnapshot{}, fmt.Errorf("redis: get positions for %s: %w", user, err)
	}

	var snap domain.PositionsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.PositionsSnapshot{}, fmt.Errorf("redis: decode positions for %s: %w", user, err)
	}
	return snap, nil
}

// SetValue stores the user's latest portfolio valuation.
func (pc *PortfolioCache) SetValue(ctx context.Context, user string, snap domain.ValueSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal value for %s: %w", user, err)
	}
	if err := pc.rdb.Set(ctx, valueKey(user), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis: set value for %s: %w", user, err)
	}
	return nil
}

// GetValue retrieves the user's latest portfolio valuation. It returns
// domain.ErrNotFound when nothing is cached.
func (pc *PortfolioCache) GetValue(ctx context.Context, user string) (domain.ValueSnapshot, error) {
	data, err := pc.rdb.Get(ctx, valueKey(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ValueSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ValueSnapshot{}, fmt.Errorf("redis: get value for %s: %w", user, err)
	}

	var snap domain.ValueSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.ValueSnapshot{}, fmt.Errorf("redis: decode value for %s: %w", user, err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.PortfolioCache = (*PortfolioCache)(nil)
