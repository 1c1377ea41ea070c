package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYANALYTICS_* environment variable overrides,
// and returns the final Config. An empty path skips the file. The returned
// Config has NOT been validated; the caller should invoke Config.Validate()
// after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYANALYTICS_* environment variables
// and overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "POLYANALYTICS_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "POLYANALYTICS_POLYMARKET_GAMMA_HOST")
	setDuration(&cfg.Polymarket.RequestTimeout, "POLYANALYTICS_POLYMARKET_REQUEST_TIMEOUT")
	setInt(&cfg.Polymarket.MaxRetries, "POLYANALYTICS_POLYMARKET_MAX_RETRIES")
	setDuration(&cfg.Polymarket.RetryBackoff, "POLYANALYTICS_POLYMARKET_RETRY_BACKOFF")
	setInt(&cfg.Polymarket.RateLimit, "POLYANALYTICS_POLYMARKET_RATE_LIMIT")
	setDuration(&cfg.Polymarket.BookCacheTTL, "POLYANALYTICS_POLYMARKET_BOOK_CACHE_TTL")

	// ── Scanner ──
	setFloat64(&cfg.Scanner.ArbThreshold, "POLYANALYTICS_SCANNER_ARB_THRESHOLD")
	setFloat64(&cfg.Scanner.SpreadThreshold, "POLYANALYTICS_SCANNER_SPREAD_THRESHOLD")
	setInt(&cfg.Scanner.BatchSize, "POLYANALYTICS_SCANNER_BATCH_SIZE")
	setDuration(&cfg.Scanner.FetchTimeout, "POLYANALYTICS_SCANNER_FETCH_TIMEOUT")
	setInt(&cfg.Scanner.MarketLimit, "POLYANALYTICS_SCANNER_MARKET_LIMIT")
	setFloat64(&cfg.Scanner.MinVolume, "POLYANALYTICS_SCANNER_MIN_VOLUME")
	setDuration(&cfg.Scanner.Interval, "POLYANALYTICS_SCANNER_INTERVAL")
	setDuration(&cfg.Scanner.LockTTL, "POLYANALYTICS_SCANNER_LOCK_TTL")

	// ── Analytics ──
	setFloat64(&cfg.Analytics.DepthWindowPct, "POLYANALYTICS_ANALYTICS_DEPTH_WINDOW_PCT")
	setDuration(&cfg.Analytics.FetchTimeout, "POLYANALYTICS_ANALYTICS_FETCH_TIMEOUT")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "POLYANALYTICS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POLYANALYTICS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYANALYTICS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYANALYTICS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYANALYTICS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYANALYTICS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYANALYTICS_REDIS_TLS_ENABLED")
	setInt64(&cfg.Redis.StreamMaxLen, "POLYANALYTICS_REDIS_STREAM_MAX_LEN")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "POLYANALYTICS_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // platform-provided alias
	setStr(&cfg.Postgres.DSN, "POLYANALYTICS_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POLYANALYTICS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYANALYTICS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYANALYTICS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYANALYTICS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYANALYTICS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYANALYTICS_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYANALYTICS_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POLYANALYTICS_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYANALYTICS_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POLYANALYTICS_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYANALYTICS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYANALYTICS_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYANALYTICS_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "POLYANALYTICS_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "POLYANALYTICS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYANALYTICS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYANALYTICS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYANALYTICS_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setStr(&cfg.Server.Host, "POLYANALYTICS_SERVER_HOST")
	setInt(&cfg.Server.Port, "PORT") // platform-provided alias
	setInt(&cfg.Server.Port, "POLYANALYTICS_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYANALYTICS_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "POLYANALYTICS_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "POLYANALYTICS_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "POLYANALYTICS_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYANALYTICS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYANALYTICS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYANALYTICS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYANALYTICS_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYANALYTICS_MODE")
	setStr(&cfg.LogLevel, "POLYANALYTICS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
