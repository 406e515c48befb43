package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"polyfolio/internal/domain"
	"polyfolio/internal/normalize"
)

// refresh performs the bounded incremental backfill: it pages upstream
// trades newest-first from offset 0 until it reaches the watermark, the end
// of upstream data, or the page cap. Records strictly newer than the
// watermark are normalized and bulk-upserted; everything at or below the
// watermark is already ingested and discarded. Market ids are collected from
// every parseable record on every retrieved page, independent of the cutoff.
func (c *Controller) refresh(ctx context.Context, user string, wm domain.Watermark) error {
	var newest *domain.Watermark
	seenMarkets := make(map[string]struct{})

	offset := 0
	for page := 0; page < c.cfg.MaxPages; page++ {
		recs, err := c.src.TradesPage(ctx, user, c.cfg.PageSize, offset, false)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		if len(recs) == 0 {
			break
		}

		// One pass: find the cutoff index and collect market ids. Records
		// with no derivable identity or timestamp never decide the cutoff.
		cutoff := -1
		for i, t := range recs {
			if mid := stringifyMarketID(t); mid != "" {
				seenMarkets[mid] = struct{}{}
			}
			if cutoff != -1 {
				continue
			}
			ms, ok := normalize.TradeTimestampMS(t)
			id := normalize.TradeID(t)
			if !ok || id == "" {
				continue
			}
			if !wm.Before(ms, id) {
				cutoff = i
			}
		}

		keep := recs
		if cutoff != -1 {
			keep = recs[:cutoff]
		}

		rows := make([]domain.TradeRecord, 0, len(keep))
		for _, t := range keep {
			rec := normalize.Trade(t, user)
			if !rec.Ingestible() {
				continue
			}
			rows = append(rows, rec)
		}

		if len(rows) > 0 {
			if _, err := c.trades.UpsertBulk(ctx, rows); err != nil {
				return fmt.Errorf("upsert page %d: %w", page, err)
			}
			if newest == nil {
				// Pages arrive newest-first, so the first kept record of the
				// first productive page is the new frontier.
				newest = &domain.Watermark{TradeAtMS: rows[0].TradedAtMS, TradeID: rows[0].TradeID}
			}
		}

		if cutoff != -1 || len(recs) < c.cfg.PageSize {
			break
		}
		offset += c.cfg.PageSize

		if page == c.cfg.MaxPages-1 {
			// Cap reached without finding the watermark: stop early, never
			// claim completeness. The next poll resumes from the watermark.
			c.logger.WarnContext(ctx, "refresh hit page cap before watermark",
				slog.String("user", user), slog.Int("pages", c.cfg.MaxPages))
		}
	}

	if len(seenMarkets) > 0 {
		if err := c.HydrateMarkets(ctx, setToSlice(seenMarkets)); err != nil {
			return fmt.Errorf("hydrate markets: %w", err)
		}
	}

	now := time.Now().UTC()
	if newest == nil {
		// Nothing newer found: watermark untouched.
		return c.meta.SetSynced(ctx, user, now, wm, domain.SyncIdle, "")
	}

	if err := c.meta.SetWatermark(ctx, user, *newest); err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	c.logger.InfoContext(ctx, "watermark advanced",
		slog.String("user", user),
		slog.Int64("trade_at_ms", newest.TradeAtMS),
		slog.String("trade_id", newest.TradeID),
	)
	return c.meta.SetSynced(ctx, user, now, *newest, domain.SyncIdle, "")
}

func stringifyMarketID(t map[string]any) string {
	for _, k := range []string{"conditionId", "market_id", "condition_id"} {
		if v, ok := t[k]; ok && v != nil {
			if s, isStr := v.(string); isStr {
				return s
			}
		}
	}
	return ""
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
