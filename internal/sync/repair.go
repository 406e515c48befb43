package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"polyfolio/internal/domain"
	"polyfolio/internal/normalize"
)

// Repairer patches small ingestion gaps by unconditionally re-fetching the
// first few pages of a user's upstream history and re-upserting them. It is
// idempotent, never touches the watermark or sync status, and runs
// out-of-band from the sync state machine.
type Repairer struct {
	src    TradeSource
	trades domain.TradeStore
	logger *slog.Logger

	pageSize int
	pages    int
}

// NewRepairer creates a Repairer. pages <= 0 defaults to 2 overlap pages of
// 100 records each.
func NewRepairer(src TradeSource, trades domain.TradeStore, logger *slog.Logger, pages int) *Repairer {
	if pages <= 0 {
		pages = 2
	}
	return &Repairer{
		src:      src,
		trades:   trades,
		logger:   logger.With(slog.String("component", "repair")),
		pageSize: 100,
		pages:    pages,
	}
}

// RepairOverlap re-ingests the head of the user's upstream history.
func (r *Repairer) RepairOverlap(ctx context.Context, user string) error {
	user = strings.ToLower(strings.TrimSpace(user))

	var collected []map[string]any
	offset := 0
	for i := 0; i < r.pages; i++ {
		page, err := r.src.TradesPage(ctx, user, r.pageSize, offset, false)
		if err != nil {
			return fmt.Errorf("repair: page %d for %s: %w", i, user, err)
		}
		if len(page) == 0 {
			break
		}
		collected = append(collected, page...)
		if len(page) < r.pageSize {
			break
		}
		offset += r.pageSize
	}

	rows := make([]domain.TradeRecord, 0, len(collected))
	for _, t := range collected {
		rec := normalize.Trade(t, user)
		if !rec.Ingestible() {
			continue
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil
	}

	n, err := r.trades.UpsertBulk(ctx, rows)
	if err != nil {
		return fmt.Errorf("repair: upsert for %s: %w", user, err)
	}
	r.logger.InfoContext(ctx, "overlap repair complete",
		slog.String("user", user),
		slog.Int("fetched", len(rows)),
		slog.Int64("upserted", n),
	)
	return nil
}
