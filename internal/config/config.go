// Package config defines the top-level configuration for polyanalytics and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYANALYTICS_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Analytics  AnalyticsConfig  `toml:"analytics"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the market data endpoints and client behaviour.
type PolymarketConfig struct {
	ClobHost       string   `toml:"clob_host"`
	GammaHost      string   `toml:"gamma_host"`
	RequestTimeout duration `toml:"request_timeout"`
	MaxRetries     int      `toml:"max_retries"`
	RetryBackoff   duration `toml:"retry_backoff"`
	// RateLimit caps requests per second per host across all replicas. It
	// only applies when Redis is enabled.
	RateLimit    int      `toml:"rate_limit"`
	BookCacheTTL duration `toml:"book_cache_ttl"` // 0 disables the Redis book cache
}

// ScannerConfig tunes arbitrage scans.
type ScannerConfig struct {
	ArbThreshold    float64  `toml:"arb_threshold"`
	SpreadThreshold float64  `toml:"spread_threshold"`
	BatchSize       int      `toml:"batch_size"`
	FetchTimeout    duration `toml:"fetch_timeout"`
	MarketLimit     int      `toml:"market_limit"`
	MinVolume       float64  `toml:"min_volume"`
	Interval        duration `toml:"interval"` // scheduled scan period in scan and full modes
	LockTTL         duration `toml:"lock_ttl"`
}

// AnalyticsConfig tunes single-market queries.
type AnalyticsConfig struct {
	DepthWindowPct float64  `toml:"depth_window_pct"`
	FetchTimeout   duration `toml:"fetch_timeout"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool   `toml:"enabled"`
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	StreamMaxLen int64  `toml:"stream_max_len"`
}

// PostgresConfig holds connection parameters for scan history.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for the scan
// report archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"` // per client IP per rate_window; needs Redis
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:       "https://clob.polymarket.com",
			GammaHost:      "https://gamma-api.polymarket.com",
			RequestTimeout: duration{15 * time.Second},
			MaxRetries:     2,
			RetryBackoff:   duration{250 * time.Millisecond},
			RateLimit:      10,
		},
		Scanner: ScannerConfig{
			ArbThreshold:    0.995,
			SpreadThreshold: 0.02,
			BatchSize:       5,
			FetchTimeout:    duration{15 * time.Second},
			MarketLimit:     100,
			MinVolume:       0,
			Interval:        duration{5 * time.Minute},
			LockTTL:         duration{5 * time.Minute},
		},
		Analytics: AnalyticsConfig{
			DepthWindowPct: 0.02,
			FetchTimeout:   duration{15 * time.Second},
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			PoolSize:     20,
			MaxRetries:   3,
			StreamMaxLen: 1000,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "polyanalytics",
			Prefix:         "scans",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"scan":   true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// RunsServer reports whether the mode serves the HTTP API.
func (c *Config) RunsServer() bool {
	m := strings.ToLower(c.Mode)
	return m == "server" || m == "full"
}

// RunsScanLoop reports whether the mode runs scheduled scans.
func (c *Config) RunsScanLoop() bool {
	m := strings.ToLower(c.Mode)
	return m == "scan" || m == "full"
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, scan, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Polymarket
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.RequestTimeout.Duration <= 0 {
		errs = append(errs, "polymarket: request_timeout must be > 0")
	}
	if c.Polymarket.MaxRetries < 0 {
		errs = append(errs, "polymarket: max_retries must be >= 0")
	}
	if c.Polymarket.RateLimit < 0 {
		errs = append(errs, "polymarket: rate_limit must be >= 0")
	}

	// Scanner
	if c.Scanner.ArbThreshold <= 0 || c.Scanner.ArbThreshold > 1 {
		errs = append(errs, fmt.Sprintf("scanner: arb_threshold must be in (0,1], got %v", c.Scanner.ArbThreshold))
	}
	if c.Scanner.SpreadThreshold <= 0 || c.Scanner.SpreadThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("scanner: spread_threshold must be in (0,1), got %v", c.Scanner.SpreadThreshold))
	}
	if c.Scanner.BatchSize < 1 {
		errs = append(errs, "scanner: batch_size must be >= 1")
	}
	if c.Scanner.FetchTimeout.Duration <= 0 {
		errs = append(errs, "scanner: fetch_timeout must be > 0")
	}
	if c.Scanner.MarketLimit < 1 {
		errs = append(errs, "scanner: market_limit must be >= 1")
	}
	if c.Scanner.MinVolume < 0 {
		errs = append(errs, "scanner: min_volume must be >= 0")
	}
	if c.RunsScanLoop() && c.Scanner.Interval.Duration <= 0 {
		errs = append(errs, "scanner: interval must be > 0 for mode "+c.Mode)
	}

	// Analytics
	if c.Analytics.DepthWindowPct <= 0 || c.Analytics.DepthWindowPct >= 1 {
		errs = append(errs, fmt.Sprintf("analytics: depth_window_pct must be in (0,1), got %v", c.Analytics.DepthWindowPct))
	}
	if c.Analytics.FetchTimeout.Duration <= 0 {
		errs = append(errs, "analytics: fetch_timeout must be > 0")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
			errs = append(errs, "s3: access_key and secret_key must be set together")
		}
	}

	// Server
	if c.RunsServer() {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
