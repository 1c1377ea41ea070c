package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyanalytics/internal/server"
	"github.com/alanyoungcy/polyanalytics/internal/server/handler"
	"github.com/alanyoungcy/polyanalytics/internal/server/ws"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// ServerMode serves the analytics API and the WebSocket feed. Scans only run
// on request.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// ScanMode runs scheduled arbitrage scans without serving HTTP.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode",
		slog.Duration("interval", a.cfg.Scanner.Interval.Duration),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runScanLoop(ctx, deps)
	})
	return g.Wait()
}

// FullMode serves the API and runs scheduled scans in the same process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode",
		slog.Duration("interval", a.cfg.Scanner.Interval.Duration),
	)

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	g.Go(func() error {
		return a.runScanLoop(ctx, deps)
	})
	return g.Wait()
}

// runScanLoop scans once immediately and then on every tick until ctx is
// cancelled. A failed scan is logged and the loop continues.
func (a *App) runScanLoop(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(a.cfg.Scanner.Interval.Duration)
	defer ticker.Stop()

	for {
		a.scanOnce(ctx, deps)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *App) scanOnce(ctx context.Context, deps *Dependencies) {
	report, ran, err := deps.Scans.RunScheduled(ctx)
	switch {
	case err != nil:
		if ctx.Err() == nil {
			a.logger.ErrorContext(ctx, "scheduled scan failed", slog.String("error", err.Error()))
		}
	case !ran:
		a.logger.DebugContext(ctx, "scheduled scan skipped, another replica holds the lock")
	default:
		a.logger.InfoContext(ctx, "scheduled scan complete",
			slog.String("scan_id", report.ID),
			slog.Int("scanned", report.Scanned),
			slog.Int("failed", report.Failed),
			slog.Int("opportunities", len(report.Opportunities)),
			slog.Int("spread_candidates", len(report.SpreadCandidates)),
			slog.Bool("partial", report.Partial),
		)
	}
}

// startHTTPServer registers the HTTP server, its WebSocket hub and their
// shutdown on g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, deps.Scans, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	srv := server.NewServer(server.Config{
		Host:        a.cfg.Server.Host,
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(a.logger, deps.HealthChecks...),
		Analytics: handler.NewAnalyticsHandler(deps.Analytics, a.logger),
		Arb:       handler.NewArbHandler(deps.Scans, a.logger),
	}, hub, deps.ServerLimiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
