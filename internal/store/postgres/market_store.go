package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"polyfolio/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// UpsertBulk writes the batch through the upsert_markets_bulk SQL function.
// Existing rows are fully replaced and their refreshed_at reset.
func (s *MarketStore) UpsertBulk(ctx context.Context, rows []domain.Market) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("postgres: marshal market batch: %w", err)
	}

	var written int64
	err = s.pool.QueryRow(ctx,
		`SELECT upsert_markets_bulk($1::jsonb)`, payload,
	).Scan(&written)
	if err != nil {
		return 0, fmt.Errorf("postgres: upsert markets: %w", err)
	}
	return written, nil
}

// GetByID returns one market, or domain.ErrNotFound.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	var m domain.Market
	err := s.pool.QueryRow(ctx, `
		SELECT market_id, status, title, slug, tokens,
			resolved_at, winner_token_id, created_at, closes_at, raw
		FROM markets WHERE market_id = $1`, id,
	).Scan(
		&m.MarketID, &m.Status, &m.Title, &m.Slug, &m.Tokens,
		&m.ResolvedAt, &m.WinnerTokenID, &m.CreatedAt, &m.ClosesAt, &m.Raw,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Market{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	if m.Tokens == nil {
		m.Tokens = []domain.MarketToken{}
	}
	return m, nil
}

// FindUnknownIDs returns the subset of ids with no local markets row.
func (s *MarketStore) FindUnknownIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT * FROM find_unknown_market_ids($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: find unknown markets: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// PickStaleOpenIDs returns ids of unresolved markets not refreshed within
// staleFor, oldest refresh first.
func (s *MarketStore) PickStaleOpenIDs(ctx context.Context, staleFor time.Duration) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT * FROM pick_stale_open_market_ids($1)`, int64(staleFor.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("postgres: pick stale markets: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
