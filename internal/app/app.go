// Package app provides the top-level application lifecycle for the trade
// mirror service. It wires together stores, caches, blob storage, the sync
// engine, and the HTTP server, and runs the background maintenance loops.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"polyfolio/internal/config"
	"polyfolio/internal/server"
	"polyfolio/internal/server/handler"
	"polyfolio/internal/sync"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the HTTP
// server and the background maintenance loops, and blocks until the context
// is cancelled.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	controller := sync.NewController(
		deps.Data,
		deps.TradeStore,
		deps.MarketStore,
		deps.SyncMetaStore,
		deps.SyncLocker,
		a.logger,
		sync.Config{
			PageSize:         a.cfg.Sync.PageSize,
			MaxPages:         a.cfg.Sync.MaxPages,
			MarketBatchSize:  a.cfg.Sync.MarketBatchSize,
			MarketStaleAfter: a.cfg.Sync.MarketStaleAfter.Duration,
			LockTTL:          a.cfg.Sync.LockTTL.Duration,
		},
	)
	repairer := sync.NewRepairer(deps.Data, deps.TradeStore, a.logger, a.cfg.Sync.RepairPages)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		},
		server.Handlers{
			Health:   handler.NewHealthHandler(a.logger),
			Snapshot: handler.NewSnapshotHandler(deps.TradeStore, deps.SyncMetaStore, deps.PortfolioCache, deps.Data, controller, a.logger),
			Trades:   handler.NewTradeHandler(deps.TradeStore, a.logger),
			Markets:  handler.NewMarketHandler(deps.MarketStore, a.logger),
			Sync:     handler.NewSyncHandler(controller, repairer, a.logger),
		},
		a.logger,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		a.sweepLoop(gctx, controller)
		return nil
	})

	g.Go(func() error {
		a.archiveLoop(gctx, deps)
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return ctx.Err()
}

// sweepLoop periodically refreshes stale open-market metadata.
func (a *App) sweepLoop(ctx context.Context, controller *sync.Controller) {
	interval := a.cfg.Sync.SweepInterval.Duration
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := controller.SweepStaleMarkets(ctx); err != nil {
				a.logger.WarnContext(ctx, "stale market sweep failed",
					slog.String("error", err.Error()))
			}
		}
	}
}

// archiveLoop periodically moves aged trades to object storage. It does
// nothing when archiving is disabled or S3 is not configured.
func (a *App) archiveLoop(ctx context.Context, deps *Dependencies) {
	retentionDays := a.cfg.Sync.ArchiveRetentionDays
	interval := a.cfg.Sync.ArchiveInterval.Duration
	if deps.Archiver == nil || retentionDays <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
			n, err := deps.Archiver.ArchiveTrades(ctx, cutoff)
			if err != nil {
				a.logger.WarnContext(ctx, "trade archive cycle failed",
					slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "trade archive cycle complete",
					slog.Int64("archived", n))
			}
		}
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
