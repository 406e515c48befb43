package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"polyfolio/internal/domain"
)

// SyncMetaStore implements domain.SyncMetaStore using PostgreSQL. All write
// paths go through SQL functions so each call is atomic.
type SyncMetaStore struct {
	pool *pgxpool.Pool
}

// NewSyncMetaStore creates a new SyncMetaStore backed by the given connection pool.
func NewSyncMetaStore(pool *pgxpool.Pool) *SyncMetaStore {
	return &SyncMetaStore{pool: pool}
}

// Get returns the user's sync bookkeeping row. A user with no row yet gets a
// zero-value idle row; the row itself is created lazily by the first write.
func (s *SyncMetaStore) Get(ctx context.Context, user string) (domain.SyncMeta, error) {
	var (
		m       domain.SyncMeta
		tradeMS *int64
		tradeID *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT user_address, sync_status, last_viewed_at, last_synced_at,
			last_trade_at_ms, last_trade_id, error_msg
		FROM user_sync_meta WHERE user_address = lower($1)`, user,
	).Scan(
		&m.UserAddress, &m.Status, &m.LastViewedAt, &m.LastSyncedAt,
		&tradeMS, &tradeID, &m.ErrorMsg,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SyncMeta{UserAddress: user, Status: domain.SyncIdle}, nil
	}
	if err != nil {
		return domain.SyncMeta{}, fmt.Errorf("postgres: get sync meta for %s: %w", user, err)
	}

	if tradeMS != nil {
		t := time.UnixMilli(*tradeMS).UTC()
		m.LastTradeAt = &t
	}
	if tradeID != nil {
		m.LastTradeID = *tradeID
	}
	return m, nil
}

// Watermark returns the durable watermark, or a zero Watermark when the user
// has never completed a sync.
func (s *SyncMetaStore) Watermark(ctx context.Context, user string) (domain.Watermark, error) {
	var wm domain.Watermark
	err := s.pool.QueryRow(ctx, `
		SELECT last_trade_at_ms, last_trade_id
		FROM user_trade_sync WHERE user_address = lower($1)`, user,
	).Scan(&wm.TradeAtMS, &wm.TradeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Watermark{}, nil
	}
	if err != nil {
		return domain.Watermark{}, fmt.Errorf("postgres: get watermark for %s: %w", user, err)
	}
	return wm, nil
}

// SetWatermark advances the durable watermark and its cached copy. The SQL
// function refuses regressions, so a stale writer loses quietly.
func (s *SyncMetaStore) SetWatermark(ctx context.Context, user string, wm domain.Watermark) error {
	_, err := s.pool.Exec(ctx,
		`SELECT set_user_watermark($1, $2, $3)`, user, wm.TradeAtMS, wm.TradeID)
	if err != nil {
		return fmt.Errorf("postgres: set watermark for %s: %w", user, err)
	}
	return nil
}

// SetSynced records the outcome of a sync cycle.
func (s *SyncMetaStore) SetSynced(ctx context.Context, user string, syncedAt time.Time, wm domain.Watermark, status domain.SyncStatus, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`SELECT set_user_meta_synced($1, $2, $3, $4, $5, $6)`,
		user, syncedAt, wm.TradeAtMS, wm.TradeID, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("postgres: set synced for %s: %w", user, err)
	}
	return nil
}

// TouchViewed stamps the user's last dashboard view, creating the row if needed.
func (s *SyncMetaStore) TouchViewed(ctx context.Context, user string) error {
	_, err := s.pool.Exec(ctx,
		`SELECT touch_user_last_viewed($1)`, user)
	if err != nil {
		return fmt.Errorf("postgres: touch viewed for %s: %w", user, err)
	}
	return nil
}
