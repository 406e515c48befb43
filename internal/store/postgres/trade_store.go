package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"polyfolio/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `trade_id, user_address, market_id, token_id, side,
	price, size, quote, taker, traded_at_ms, raw`

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(
			&t.TradeID, &t.UserAddress, &t.MarketID, &t.TokenID, &t.Side,
			&t.Price, &t.Size, &t.Quote, &t.Taker, &t.TradedAtMS, &t.Raw,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// UpsertBulk hands the whole batch to the upsert_trades_bulk SQL function as
// one jsonb payload. Rows whose trade_id already exists are skipped; the
// returned count is the number of rows actually inserted.
func (s *TradeStore) UpsertBulk(ctx context.Context, rows []domain.TradeRecord) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("postgres: marshal trade batch: %w", err)
	}

	var inserted int64
	err = s.pool.QueryRow(ctx,
		`SELECT upsert_trades_bulk($1::jsonb)`, payload,
	).Scan(&inserted)
	if err != nil {
		return 0, fmt.Errorf("postgres: upsert trades: %w", err)
	}
	return inserted, nil
}

// ListByUser returns the user's trades newest-first with pagination.
func (s *TradeStore) ListByUser(ctx context.Context, user string, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + `
		FROM trades WHERE user_address = lower($1)
		ORDER BY traded_at_ms DESC, trade_id DESC`
	args := []any{user}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by user: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by user: %w", err)
	}
	return trades, nil
}

// ListBefore returns all trades executed strictly before the given time,
// oldest-first (for archiving).
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + `
		FROM trades WHERE traded_at_ms < $1 ORDER BY traded_at_ms ASC, trade_id ASC`
	rows, err := s.pool.Query(ctx, query, before.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes all trades executed before the given time. Returns the
// number deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM trades WHERE traded_at_ms < $1`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}
