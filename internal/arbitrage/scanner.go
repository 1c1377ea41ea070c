// Package arbitrage scans binary markets for true arbitrage (both outcomes
// purchasable below the threshold) and for wide-spread market-making
// candidates. Markets are evaluated in fixed-size batches: markets within a
// batch run concurrently, batches run one after another to bound the request
// rate against the provider.
package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
	"github.com/alanyoungcy/polyanalytics/internal/orderbook"
)

// Config tunes the scanner.
type Config struct {
	ArbThreshold    float64       // sum of best asks below which a market is an arb
	SpreadThreshold float64       // spread above which a market is a candidate
	BatchSize       int           // markets evaluated concurrently
	FetchTimeout    time.Duration // per provider call
}

// DefaultConfig returns the scanner defaults.
func DefaultConfig() Config {
	return Config{
		ArbThreshold:    0.995,
		SpreadThreshold: 0.02,
		BatchSize:       5,
		FetchTimeout:    15 * time.Second,
	}
}

// Scanner evaluates many markets against a MarketDataProvider.
type Scanner struct {
	provider domain.MarketDataProvider
	merger   orderbook.Merger
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewScanner creates a Scanner. Zero-valued config fields take their defaults.
func NewScanner(provider domain.MarketDataProvider, cfg Config, logger *slog.Logger) *Scanner {
	def := DefaultConfig()
	if cfg.ArbThreshold <= 0 {
		cfg.ArbThreshold = def.ArbThreshold
	}
	if cfg.SpreadThreshold <= 0 {
		cfg.SpreadThreshold = def.SpreadThreshold
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		provider: provider,
		merger:   orderbook.Default,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "arb_scanner")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the effective scanner configuration.
func (s *Scanner) Config() Config { return s.cfg }

// unitResult is written by exactly one goroutine, at its own index.
type unitResult struct {
	eval Evaluation
	err  error
}

// Scan evaluates markets and returns a ranked report. A market whose fetches
// fail or time out is counted as failed and skipped. If ctx is cancelled, no
// further batches start and the report is returned with Partial set. Partial
// stays false when every market was evaluated before the cancellation.
func (s *Scanner) Scan(ctx context.Context, markets []domain.Market) domain.ScanReport {
	report := domain.ScanReport{
		ID:               uuid.NewString(),
		StartedAt:        s.now(),
		Requested:        len(markets),
		ArbThreshold:     s.cfg.ArbThreshold,
		SpreadThreshold:  s.cfg.SpreadThreshold,
		Markets:          []domain.MarketScan{},
		Opportunities:    []domain.ArbitrageOpportunity{},
		SpreadCandidates: []domain.SpreadCandidate{},
	}

	s.logger.InfoContext(ctx, "scan started",
		slog.String("scan_id", report.ID),
		slog.Int("markets", len(markets)),
		slog.Int("batch_size", s.cfg.BatchSize),
	)

	for start := 0; start < len(markets); start += s.cfg.BatchSize {
		if ctx.Err() != nil {
			report.Partial = true
			break
		}
		end := min(start+s.cfg.BatchSize, len(markets))
		batch := markets[start:end]
		results := make([]unitResult, len(batch))

		var g errgroup.Group
		for i, m := range batch {
			g.Go(func() error {
				eval, err := s.evaluateMarket(ctx, m)
				results[i] = unitResult{eval: eval, err: err}
				return nil
			})
		}
		_ = g.Wait()

		for i, r := range results {
			if r.err != nil {
				if cerr := ctx.Err(); cerr != nil && errors.Is(r.err, cerr) {
					report.Partial = true
				}
				report.Failed++
				s.logger.WarnContext(ctx, "market skipped",
					slog.String("scan_id", report.ID),
					slog.String("market_id", batch[i].ID),
					slog.String("error", r.err.Error()),
				)
				continue
			}
			report.Scanned++
			report.Markets = append(report.Markets, r.eval.Summary)
			if r.eval.Opportunity != nil {
				opp := *r.eval.Opportunity
				opp.ScanID = report.ID
				report.Opportunities = append(report.Opportunities, opp)
			}
			if r.eval.Candidate != nil {
				report.SpreadCandidates = append(report.SpreadCandidates, *r.eval.Candidate)
			}
		}
	}

	Rank(&report)
	report.CompletedAt = s.now()

	s.logger.InfoContext(ctx, "scan finished",
		slog.String("scan_id", report.ID),
		slog.Int("scanned", report.Scanned),
		slog.Int("failed", report.Failed),
		slog.Int("opportunities", len(report.Opportunities)),
		slog.Int("spread_candidates", len(report.SpreadCandidates)),
		slog.Bool("partial", report.Partial),
	)
	return report
}

// Rank orders opportunities by edge and candidates by spread, both descending.
func Rank(report *domain.ScanReport) {
	sort.SliceStable(report.Opportunities, func(i, j int) bool {
		return report.Opportunities[i].Edge > report.Opportunities[j].Edge
	})
	sort.SliceStable(report.SpreadCandidates, func(i, j int) bool {
		return report.SpreadCandidates[i].Spread > report.SpreadCandidates[j].Spread
	})
}

// EvaluateMarket runs the full per-market unit of work for a single market.
func (s *Scanner) EvaluateMarket(ctx context.Context, m domain.Market) (Evaluation, error) {
	return s.evaluateMarket(ctx, m)
}

func (s *Scanner) evaluateMarket(ctx context.Context, m domain.Market) (Evaluation, error) {
	if !m.HasTokens() {
		resolved, err := withTimeout(ctx, s.cfg.FetchTimeout, func(ctx context.Context) (domain.Market, error) {
			return s.provider.FetchMarketTokens(ctx, m.ID)
		})
		if err != nil {
			return Evaluation{}, fmt.Errorf("resolve tokens: %w", err)
		}
		if !resolved.HasTokens() {
			return Evaluation{}, fmt.Errorf("resolve tokens: %w", domain.ErrMissingComplement)
		}
		if resolved.Question == "" {
			resolved.Question = m.Question
		}
		m = resolved
	}

	var bookA, bookB domain.OrderbookSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bookA, err = withTimeout(gctx, s.cfg.FetchTimeout, func(ctx context.Context) (domain.OrderbookSnapshot, error) {
			return s.provider.FetchOrderBook(ctx, m.TokenIDs[0])
		})
		return err
	})
	g.Go(func() error {
		var err error
		bookB, err = withTimeout(gctx, s.cfg.FetchTimeout, func(ctx context.Context) (domain.OrderbookSnapshot, error) {
			return s.provider.FetchOrderBook(ctx, m.TokenIDs[1])
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return Evaluation{}, fmt.Errorf("fetch books: %w", err)
	}

	mergedA := s.merger.Merge(bookA, &bookB)
	mergedB := s.merger.Merge(bookB, &bookA)
	return Evaluate(m, mergedA, mergedB, s.cfg.ArbThreshold, s.cfg.SpreadThreshold, s.now()), nil
}

// withTimeout runs fn under a derived context bounded by d.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
