package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Scanner.ArbThreshold != 0.995 || cfg.Scanner.BatchSize != 5 || cfg.Scanner.FetchTimeout.Duration != 15*time.Second {
		t.Errorf("scanner defaults = %+v", cfg.Scanner)
	}
	if cfg.Analytics.DepthWindowPct != 0.02 {
		t.Errorf("depth window = %v", cfg.Analytics.DepthWindowPct)
	}
	if cfg.Polymarket.BookCacheTTL.Duration != 0 {
		t.Errorf("book cache ttl = %v, want 0 (cache off unless configured)", cfg.Polymarket.BookCacheTTL.Duration)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "full"

[scanner]
arb_threshold = 0.97
interval = "90s"

[redis]
enabled = true
addr = "redis:6379"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLYANALYTICS_SCANNER_BATCH_SIZE", "8")
	t.Setenv("POLYANALYTICS_SERVER_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("POLYANALYTICS_POSTGRES_DSN", "postgres://u:p@db/x")
	t.Setenv("DATABASE_URL", "postgres://alias/ignored")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "full" || cfg.Scanner.ArbThreshold != 0.97 || cfg.Scanner.Interval.Duration != 90*time.Second {
		t.Errorf("file values not applied: mode=%q scanner=%+v", cfg.Mode, cfg.Scanner)
	}
	if cfg.Scanner.SpreadThreshold != 0.02 {
		t.Errorf("default lost: spread threshold = %v", cfg.Scanner.SpreadThreshold)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Scanner.BatchSize != 8 {
		t.Errorf("env batch size = %d", cfg.Scanner.BatchSize)
	}
	if got := strings.Join(cfg.Server.CORSOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Errorf("cors origins = %q", got)
	}
	if cfg.Postgres.DSN != "postgres://u:p@db/x" {
		t.Errorf("dsn = %q", cfg.Postgres.DSN)
	}
	if !cfg.RunsServer() || !cfg.RunsScanLoop() {
		t.Error("full mode should run server and scan loop")
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("POLYANALYTICS_MODE", "scan")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "scan" || cfg.RunsServer() {
		t.Errorf("mode = %q", cfg.Mode)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"mode", func(c *Config) { c.Mode = "trade" }, "unknown mode"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"threshold", func(c *Config) { c.Scanner.ArbThreshold = 1.5 }, "arb_threshold"},
		{"batch size", func(c *Config) { c.Scanner.BatchSize = 0 }, "batch_size"},
		{"window", func(c *Config) { c.Analytics.DepthWindowPct = 0 }, "depth_window_pct"},
		{"scan interval", func(c *Config) { c.Mode = "scan"; c.Scanner.Interval.Duration = 0 }, "interval"},
		{"redis addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis: addr"},
		{"postgres pool", func(c *Config) { c.Postgres.Enabled = true; c.Postgres.PoolMinConns = 50 }, "pool_min_conns"},
		{"s3 keys", func(c *Config) { c.S3.Enabled = true; c.S3.AccessKey = "k" }, "secret_key"},
		{"telegram", func(c *Config) { c.Notify.TelegramToken = "t" }, "telegram_chat_id"},
		{"port", func(c *Config) { c.Server.Port = 0 }, "server: port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}

	cfg := Defaults()
	cfg.Mode = "nope"
	cfg.Scanner.BatchSize = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown mode") || !strings.Contains(err.Error(), "batch_size") {
		t.Errorf("errors not combined: %v", err)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "pw"
	cfg.Server.APIKey = "key"
	cfg.Notify.TelegramToken = "tok"

	out := RedactedConfig(&cfg)
	if out.Postgres.Password != redacted || out.Server.APIKey != redacted || out.Notify.TelegramToken != redacted {
		t.Errorf("secrets not redacted: %+v", out)
	}
	if out.Redis.Password != "" {
		t.Error("empty secret should stay empty")
	}
	if cfg.Postgres.Password != "pw" {
		t.Error("original mutated")
	}

	out.Server.CORSOrigins[0] = "changed"
	if cfg.Server.CORSOrigins[0] == "changed" {
		t.Error("slice shared with original")
	}
}
