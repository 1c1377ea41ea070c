package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/polyanalytics/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// upstream serves an empty market list on every path and counts requests.
func upstream(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	cfg := config.Defaults()
	cfg.Polymarket.ClobHost = baseURL
	cfg.Polymarket.GammaHost = baseURL
	cfg.Polymarket.MaxRetries = 0
	return &cfg
}

func TestWireWithoutBackends(t *testing.T) {
	var hits atomic.Int64
	cfg := testConfig(upstream(t, &hits).URL)

	deps, cleanup, err := Wire(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	defer cleanup()

	if deps.Provider == nil || deps.Analytics == nil || deps.Scans == nil || deps.Scanner == nil {
		t.Fatalf("core services not wired: %+v", deps)
	}
	if deps.SignalBus != nil || deps.ServerLimiter != nil {
		t.Error("redis-backed dependencies wired with redis disabled")
	}
	if len(deps.HealthChecks) != 0 {
		t.Errorf("health checks = %d, want 0", len(deps.HealthChecks))
	}
	if deps.Notifier.Enabled() {
		t.Error("notifier enabled without channels")
	}
	if got := deps.Scanner.Config().ArbThreshold; got != 0.995 {
		t.Errorf("arb threshold = %v, want 0.995", got)
	}
}

func TestRunScanLoopStopsOnCancel(t *testing.T) {
	var hits atomic.Int64
	cfg := testConfig(upstream(t, &hits).URL)
	cfg.Scanner.Interval.Duration = 10 * time.Millisecond

	a := New(cfg, quietLogger())
	deps, cleanup, err := Wire(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.runScanLoop(ctx, deps) }()

	deadline := time.After(5 * time.Second)
	for hits.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("scan loop made %d upstream requests, want at least 2", hits.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("runScanLoop = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scan loop did not stop")
	}

	if _, ok := deps.Scans.LastReport(); !ok {
		t.Error("no report remembered after scheduled scans")
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	var hits atomic.Int64
	cfg := testConfig(upstream(t, &hits).URL)
	cfg.Mode = "trade"

	a := New(cfg, quietLogger())
	defer a.Close()
	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected error for unsupported mode")
	}
}

func TestHostKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://clob.polymarket.com", "upstream:clob.polymarket.com"},
		{"http://localhost:9000/path", "upstream:localhost:9000"},
		{"not a url", "upstream:not a url"},
	}
	for _, tt := range tests {
		if got := hostKey(tt.in); got != tt.want {
			t.Errorf("hostKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildSenders(t *testing.T) {
	senders := buildSenders(config.NotifyConfig{DiscordWebhookURL: "http://example.invalid/hook"}, quietLogger())
	if len(senders) != 1 || senders[0].Name() != "discord" {
		t.Fatalf("senders = %v, want discord only", senders)
	}
	if got := buildSenders(config.NotifyConfig{TelegramToken: "tok"}, quietLogger()); len(got) != 0 {
		t.Errorf("telegram without chat id wired: %v", got)
	}
}
