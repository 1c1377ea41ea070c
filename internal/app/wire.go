package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/alanyoungcy/polyanalytics/internal/arbitrage"
	s3blob "github.com/alanyoungcy/polyanalytics/internal/blob/s3"
	"github.com/alanyoungcy/polyanalytics/internal/cache/redis"
	"github.com/alanyoungcy/polyanalytics/internal/config"
	"github.com/alanyoungcy/polyanalytics/internal/domain"
	"github.com/alanyoungcy/polyanalytics/internal/notify"
	"github.com/alanyoungcy/polyanalytics/internal/platform/polymarket"
	"github.com/alanyoungcy/polyanalytics/internal/server/handler"
	"github.com/alanyoungcy/polyanalytics/internal/service"
	"github.com/alanyoungcy/polyanalytics/internal/store/postgres"
)

// Dependencies bundles everything the operating modes need. It is constructed
// by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Provider  *polymarket.Provider
	Scanner   *arbitrage.Scanner
	Analytics *service.AnalyticsService
	Scans     *service.ScanService

	// Nil when Redis is disabled.
	SignalBus     domain.SignalBus
	ServerLimiter domain.RateLimiter

	Notifier *notify.Notifier

	// HealthChecks ping every enabled backend for /api/health.
	HealthChecks []handler.HealthCheck
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	var (
		bookCache domain.BookCache
		scanDeps  service.ScanDeps
		clobOpts  []polymarket.ClientOption
		gammaOpts []polymarket.ClientOption
	)

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		if cfg.Polymarket.BookCacheTTL.Duration > 0 {
			bookCache = redis.NewBookCache(redisClient, cfg.Polymarket.BookCacheTTL.Duration)
		}
		if cfg.Polymarket.RateLimit > 0 {
			upstream := redis.NewRateLimiter(redisClient, cfg.Polymarket.RateLimit, time.Second)
			clobOpts = append(clobOpts, polymarket.WithRateLimiter(upstream, hostKey(cfg.Polymarket.ClobHost)))
			gammaOpts = append(gammaOpts, polymarket.WithRateLimiter(upstream, hostKey(cfg.Polymarket.GammaHost)))
		}
		if cfg.Server.RateLimit > 0 {
			deps.ServerLimiter = redis.NewRateLimiter(redisClient, cfg.Server.RateLimit, cfg.Server.RateWindow.Duration)
		}

		bus := redis.NewSignalBusWithMaxLen(redisClient, cfg.Redis.StreamMaxLen)
		deps.SignalBus = bus
		scanDeps.Bus = bus
		scanDeps.Locks = redis.NewLockManager(redisClient)
		deps.HealthChecks = append(deps.HealthChecks, handler.HealthCheck{Name: "redis", Ping: redisClient.Ping})
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		scanDeps.Store = postgres.NewScanStore(pgClient.Pool())
		deps.HealthChecks = append(deps.HealthChecks, handler.HealthCheck{Name: "postgres", Ping: pgClient.Ping})
	}

	// --- S3 scan archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		scanDeps.Archive = s3blob.NewScanArchiver(s3blob.NewWriter(s3Client), s3blob.NewReader(s3Client), cfg.S3.Prefix)
		deps.HealthChecks = append(deps.HealthChecks, handler.HealthCheck{Name: "s3", Ping: s3Client.Health})
	}

	// --- Notifications ---
	deps.Notifier = notify.NewNotifier(buildSenders(cfg.Notify, logger), cfg.Notify.Events, logger)
	if deps.Notifier.Enabled() {
		scanDeps.Alerter = deps.Notifier
	}

	// --- Market data and services ---
	common := []polymarket.ClientOption{
		polymarket.WithTimeout(cfg.Polymarket.RequestTimeout.Duration),
		polymarket.WithRetries(cfg.Polymarket.MaxRetries, cfg.Polymarket.RetryBackoff.Duration),
		polymarket.WithLogger(logger),
	}
	clob := polymarket.NewClobClient(cfg.Polymarket.ClobHost, append(clobOpts, common...)...)
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost, append(gammaOpts, common...)...)
	deps.Provider = polymarket.NewProvider(clob, gamma, bookCache, logger)

	deps.Analytics = service.NewAnalyticsService(deps.Provider, deps.Provider, service.AnalyticsConfig{
		FetchTimeout:   cfg.Analytics.FetchTimeout.Duration,
		DepthWindowPct: cfg.Analytics.DepthWindowPct,
	}, logger)

	deps.Scanner = arbitrage.NewScanner(deps.Provider, arbitrage.Config{
		ArbThreshold:    cfg.Scanner.ArbThreshold,
		SpreadThreshold: cfg.Scanner.SpreadThreshold,
		BatchSize:       cfg.Scanner.BatchSize,
		FetchTimeout:    cfg.Scanner.FetchTimeout.Duration,
	}, logger)

	deps.Scans = service.NewScanService(deps.Provider, deps.Scanner, scanDeps, service.ScanConfig{
		MarketLimit: cfg.Scanner.MarketLimit,
		MinVolume:   cfg.Scanner.MinVolume,
		LockTTL:     cfg.Scanner.LockTTL.Duration,
	}, logger)

	return deps, cleanup, nil
}

// buildSenders returns the configured notification channels. A channel that
// fails to initialise is logged and skipped.
func buildSenders(cfg config.NotifyConfig, logger *slog.Logger) []notify.Sender {
	var senders []notify.Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		tg, err := notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.Warn("wire: telegram disabled", slog.String("error", err.Error()))
		} else {
			senders = append(senders, tg)
		}
	}
	if cfg.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.DiscordWebhookURL))
	}
	return senders
}

// hostKey derives the shared rate limit key for an upstream base URL so every
// replica draws from the same per-host budget.
func hostKey(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "upstream:" + baseURL
	}
	return "upstream:" + u.Host
}
