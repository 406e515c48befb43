package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"polyfolio/internal/domain"
	"polyfolio/internal/normalize"
)

// HydrateMarkets persists metadata for whichever of the given market ids are
// not yet known locally. Already-known markets are skipped entirely; the
// stale sweep is responsible for refreshing those.
func (c *Controller) HydrateMarkets(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	unknown, err := c.markets.FindUnknownIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("find unknown markets: %w", err)
	}
	if len(unknown) == 0 {
		return nil
	}
	return c.hydrate(ctx, unknown)
}

// SweepStaleMarkets refreshes metadata for open/pending markets whose last
// hydration is older than the configured staleness window. This keeps
// long-lived open markets current even when no new trades reference them.
func (c *Controller) SweepStaleMarkets(ctx context.Context) error {
	ids, err := c.markets.PickStaleOpenIDs(ctx, c.cfg.MarketStaleAfter)
	if err != nil {
		return fmt.Errorf("sync: pick stale markets: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	c.logger.InfoContext(ctx, "refreshing stale open markets", slog.Int("count", len(ids)))
	if err := c.hydrate(ctx, ids); err != nil {
		return fmt.Errorf("sync: sweep stale markets: %w", err)
	}
	return nil
}

// hydrate fetches metadata for exactly the given ids in fixed-size batches,
// normalizes the results, and upserts every record with a resolvable market
// identity.
func (c *Controller) hydrate(ctx context.Context, ids []string) error {
	sort.Strings(ids)

	var rows []domain.Market
	for start := 0; start < len(ids); start += c.cfg.MarketBatchSize {
		end := start + c.cfg.MarketBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		raws, err := c.src.MarketsByIDs(ctx, ids[start:end])
		if err != nil {
			return fmt.Errorf("fetch markets batch: %w", err)
		}

		for _, raw := range raws {
			m := normalize.Market(raw)
			if m.MarketID == "" {
				continue
			}
			rows = append(rows, m)
		}
	}

	if len(rows) == 0 {
		return nil
	}
	if _, err := c.markets.UpsertBulk(ctx, rows); err != nil {
		return fmt.Errorf("upsert markets: %w", err)
	}
	return nil
}
