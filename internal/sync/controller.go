// Package sync implements the incremental synchronization engine that keeps
// a user's local trade mirror consistent with the upstream ledger. Each
// cycle is idempotent and restartable: it is always safe to abandon a cycle
// and resume from the durable watermark on the next trigger.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"polyfolio/internal/domain"
	"polyfolio/internal/normalize"
)

// TradeSource is the upstream read-only API surface the engine consumes.
// *polymarket.DataClient satisfies it.
type TradeSource interface {
	TradesPage(ctx context.Context, user string, limit, offset int, takerOnly bool) ([]map[string]any, error)
	HeadTrade(ctx context.Context, user string) (map[string]any, error)
	MarketsByIDs(ctx context.Context, ids []string) ([]map[string]any, error)
}

// Config holds the engine's tuning knobs.
type Config struct {
	// PageSize is the number of trades requested per refresh page.
	PageSize int
	// MaxPages bounds one refresh cycle. Hitting the cap without finding the
	// watermark stops early; the next poll resumes from the durable watermark.
	MaxPages int
	// MarketBatchSize is the number of market ids per hydration request.
	MarketBatchSize int
	// MarketStaleAfter is the staleness window for the open-market sweep.
	MarketStaleAfter time.Duration
	// LockTTL bounds how long a per-user sync lock may be held.
	LockTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 500
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 5
	}
	if c.MarketBatchSize <= 0 {
		c.MarketBatchSize = 50
	}
	if c.MarketStaleAfter <= 0 {
		c.MarketStaleAfter = 75 * time.Minute
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 2 * time.Minute
	}
}

// errMsgMax caps error messages recorded in sync meta.
const errMsgMax = 500

// headKeysSample caps the payload field-name sample recorded when a head
// trade cannot be parsed.
const headKeysSample = 20

// Controller drives the per-user sync state machine: head-check, bounded
// incremental refresh, market hydration, and status transitions.
type Controller struct {
	src     TradeSource
	trades  domain.TradeStore
	markets domain.MarketStore
	meta    domain.SyncMetaStore
	locks   domain.SyncLocker
	logger  *slog.Logger
	cfg     Config

	group singleflight.Group
}

// NewController creates a Controller. locks may be nil, in which case
// cross-process exclusion is skipped and only the in-process singleflight
// guard applies.
func NewController(src TradeSource, trades domain.TradeStore, markets domain.MarketStore, meta domain.SyncMetaStore, locks domain.SyncLocker, logger *slog.Logger, cfg Config) *Controller {
	cfg.applyDefaults()
	return &Controller{
		src:     src,
		trades:  trades,
		markets: markets,
		meta:    meta,
		locks:   locks,
		logger:  logger.With(slog.String("component", "sync")),
		cfg:     cfg,
	}
}

// Sync runs one sync cycle for the user. Concurrent calls for the same user
// collapse onto a single in-flight cycle; across processes a short-TTL lock
// provides the same guarantee. The sync_status column remains an advisory
// signal for the read path, not the exclusion mechanism.
func (c *Controller) Sync(ctx context.Context, user string) error {
	user = strings.ToLower(strings.TrimSpace(user))

	_, err, _ := c.group.Do(user, func() (any, error) {
		return nil, c.syncOnce(ctx, user)
	})
	return err
}

func (c *Controller) syncOnce(ctx context.Context, user string) error {
	if c.locks != nil {
		release, err := c.locks.Acquire(ctx, "sync:"+user, c.cfg.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			c.logger.DebugContext(ctx, "sync already in flight", slog.String("user", user))
			return nil
		case err != nil:
			// The lock is best-effort; a lock-store outage must not stop syncs.
			c.logger.WarnContext(ctx, "sync lock unavailable, proceeding",
				slog.String("user", user), slog.String("error", err.Error()))
		default:
			defer release()
		}
	}

	wm, err := c.meta.Watermark(ctx, user)
	if err != nil {
		return fmt.Errorf("sync: load watermark for %s: %w", user, err)
	}

	now := time.Now().UTC()

	head, err := c.src.HeadTrade(ctx, user)
	if err != nil {
		_ = c.meta.SetSynced(ctx, user, now, wm, domain.SyncError, truncateErr(err.Error()))
		return fmt.Errorf("sync: head check for %s: %w", user, err)
	}

	if head == nil {
		// No upstream history at all: idle, watermark fields cleared.
		return c.meta.SetSynced(ctx, user, now, domain.Watermark{}, domain.SyncIdle, "")
	}

	headMS, tsOK := normalize.TradeTimestampMS(head)
	headID := normalize.TradeID(head)
	if !tsOK || headID == "" {
		// Never loop on unparseable upstream data; record a field-name sample
		// for postmortem and stop this cycle.
		msg := fmt.Sprintf("head trade missing id/timestamp; keys=%v", topLevelKeys(head, headKeysSample))
		c.logger.WarnContext(ctx, "unparseable head trade", slog.String("user", user), slog.String("msg", msg))
		return c.meta.SetSynced(ctx, user, now, domain.Watermark{}, domain.SyncError, truncateErr(msg))
	}

	if !wm.IsZero() && !wm.Before(headMS, headID) {
		// Mirror already covers the head; nothing to fetch.
		return c.meta.SetSynced(ctx, user, now, wm, domain.SyncIdle, "")
	}

	if err := c.meta.SetSynced(ctx, user, now, wm, domain.SyncRunning, ""); err != nil {
		return fmt.Errorf("sync: mark running for %s: %w", user, err)
	}

	if err := c.refresh(ctx, user, wm); err != nil {
		// The cycle must not leave status stuck at running.
		_ = c.meta.SetSynced(ctx, user, time.Now().UTC(), wm, domain.SyncError, truncateErr(err.Error()))
		return fmt.Errorf("sync: refresh for %s: %w", user, err)
	}
	return nil
}

func truncateErr(msg string) string {
	if len(msg) > errMsgMax {
		return msg[:errMsgMax]
	}
	return msg
}

func topLevelKeys(m map[string]any, max int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > max {
		keys = keys[:max]
	}
	return keys
}
