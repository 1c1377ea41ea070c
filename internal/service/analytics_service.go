package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyanalytics/internal/analytics"
	"github.com/alanyoungcy/polyanalytics/internal/domain"
	"github.com/alanyoungcy/polyanalytics/internal/orderbook"
)

// TokenQuery identifies the token a single-market operation is about. At
// least one field must be set; with only MarketID the market's first outcome
// token is used.
type TokenQuery struct {
	TokenID  string
	MarketID string
}

// AnalyticsConfig tunes the single-market operations.
type AnalyticsConfig struct {
	FetchTimeout   time.Duration
	DepthWindowPct float64
}

// AnalyticsService answers single-market questions: merged book, liquidity,
// slippage and efficiency. Every call works on a fresh snapshot.
type AnalyticsService struct {
	provider domain.MarketDataProvider
	resolver domain.TokenResolver
	merger   orderbook.Merger
	cfg      AnalyticsConfig
	logger   *slog.Logger
}

// NewAnalyticsService creates an AnalyticsService. resolver may be nil, in
// which case token-only queries never find a complement.
func NewAnalyticsService(
	provider domain.MarketDataProvider,
	resolver domain.TokenResolver,
	cfg AnalyticsConfig,
	logger *slog.Logger,
) *AnalyticsService {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.DepthWindowPct <= 0 {
		cfg.DepthWindowPct = analytics.DefaultDepthWindowPct
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsService{
		provider: provider,
		resolver: resolver,
		merger:   orderbook.Default,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "analytics_service")),
	}
}

// target is a resolved query: the token to analyse plus what is known about
// its market.
type target struct {
	token  domain.OutcomeToken
	market domain.Market
}

// resolve turns a query into a token with its complement when one can be
// found. Failing to find a complement is not an error.
func (s *AnalyticsService) resolve(ctx context.Context, q TokenQuery) (target, error) {
	q.TokenID = strings.TrimSpace(q.TokenID)
	q.MarketID = strings.TrimSpace(q.MarketID)

	switch {
	case q.TokenID == "" && q.MarketID == "":
		return target{}, domain.ErrMissingIdentifier

	case q.TokenID == "":
		m, err := s.fetchMarket(ctx, q.MarketID)
		if err != nil {
			return target{}, fmt.Errorf("analytics_service: resolve market %s: %w", q.MarketID, err)
		}
		return target{token: m.Tokens()[0], market: m}, nil
	}

	var (
		m   domain.Market
		err error
	)
	if q.MarketID != "" {
		m, err = s.fetchMarket(ctx, q.MarketID)
	} else if s.resolver != nil {
		m, err = withTimeout(ctx, s.cfg.FetchTimeout, func(ctx context.Context) (domain.Market, error) {
			return s.resolver.ResolveMarketByToken(ctx, q.TokenID)
		})
	} else {
		err = domain.ErrMissingComplement
	}

	if err == nil {
		if tok, ok := m.Token(q.TokenID); ok {
			return target{token: tok, market: m}, nil
		}
		err = fmt.Errorf("token not listed by market %s: %w", m.ID, domain.ErrMissingComplement)
	}

	s.logger.WarnContext(ctx, "complement unresolved, using direct book only",
		slog.String("token_id", q.TokenID),
		slog.String("market_id", q.MarketID),
		slog.String("error", err.Error()),
	)
	return target{
		token:  domain.OutcomeToken{ID: q.TokenID, MarketID: q.MarketID},
		market: domain.Market{ID: q.MarketID},
	}, nil
}

func (s *AnalyticsService) fetchMarket(ctx context.Context, marketID string) (domain.Market, error) {
	return withTimeout(ctx, s.cfg.FetchTimeout, func(ctx context.Context) (domain.Market, error) {
		return s.provider.FetchMarketTokens(ctx, marketID)
	})
}

// mergedBook fetches the token's book and, concurrently, its complement's.
// Only the primary fetch can fail the call.
func (s *AnalyticsService) mergedBook(ctx context.Context, t target) (domain.MergedOrderBook, error) {
	var primary domain.OrderbookSnapshot
	var complement *domain.OrderbookSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		primary, err = withTimeout(gctx, s.cfg.FetchTimeout, func(ctx context.Context) (domain.OrderbookSnapshot, error) {
			return s.provider.FetchOrderBook(ctx, t.token.ID)
		})
		return err
	})
	if t.token.ComplementID != "" {
		g.Go(func() error {
			snap, err := withTimeout(gctx, s.cfg.FetchTimeout, func(ctx context.Context) (domain.OrderbookSnapshot, error) {
				return s.provider.FetchOrderBook(ctx, t.token.ComplementID)
			})
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.WarnContext(ctx, "complement book unavailable, using direct book only",
						slog.String("token_id", t.token.ID),
						slog.String("complement_id", t.token.ComplementID),
						slog.String("error", err.Error()),
					)
				}
				return nil
			}
			complement = &snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.MergedOrderBook{}, fmt.Errorf("analytics_service: fetch book %s: %w", t.token.ID, err)
	}

	book := s.merger.Merge(primary, complement)
	if book.TokenID == "" {
		book.TokenID = t.token.ID
	}
	return book, nil
}

// referencePrice asks the provider for a reference and falls back to the
// merged book when it is unavailable.
func (s *AnalyticsService) referencePrice(ctx context.Context, book domain.MergedOrderBook) float64 {
	fetched, err := withTimeout(ctx, s.cfg.FetchTimeout, func(ctx context.Context) (float64, error) {
		return s.provider.FetchReferencePrice(ctx, book.TokenID)
	})
	if err != nil {
		s.logger.DebugContext(ctx, "reference price unavailable, using merged book",
			slog.String("token_id", book.TokenID),
			slog.String("error", err.Error()),
		)
		fetched = 0
	}
	return analytics.ResolveReference(book, fetched)
}

// OrderBook returns the merged book for the queried token.
func (s *AnalyticsService) OrderBook(ctx context.Context, q TokenQuery) (domain.MergedBookView, error) {
	t, err := s.resolve(ctx, q)
	if err != nil {
		return domain.MergedBookView{}, err
	}
	book, err := s.mergedBook(ctx, t)
	if err != nil {
		return domain.MergedBookView{}, err
	}

	view := analytics.BookView(book, s.referencePrice(ctx, book))
	view.MarketID = t.market.ID
	view.Question = t.market.Question
	return view, nil
}

// Liquidity returns the liquidity report for the queried token. A
// non-positive or non-finite windowPct uses the configured default.
func (s *AnalyticsService) Liquidity(ctx context.Context, q TokenQuery, windowPct float64) (domain.LiquidityReport, error) {
	t, err := s.resolve(ctx, q)
	if err != nil {
		return domain.LiquidityReport{}, err
	}
	book, err := s.mergedBook(ctx, t)
	if err != nil {
		return domain.LiquidityReport{}, err
	}
	if !(windowPct > 0) || math.IsInf(windowPct, 0) {
		windowPct = s.cfg.DepthWindowPct
	}

	rep := analytics.AnalyzeLiquidity(book, s.referencePrice(ctx, book), analytics.LiquidityOptions{DepthWindowPct: windowPct})
	rep.MarketID = t.market.ID

	s.logger.DebugContext(ctx, "liquidity analysed",
		slog.String("token_id", rep.TokenID),
		slog.String("classification", string(rep.Classification)),
		slog.Float64("spread", rep.Spread),
	)
	return rep, nil
}

// Slippage simulates selling amountUSD of the queried token into its merged
// bids.
func (s *AnalyticsService) Slippage(ctx context.Context, q TokenQuery, amountUSD float64) (domain.SlippageResult, error) {
	if !(amountUSD > 0) || math.IsInf(amountUSD, 1) {
		return domain.SlippageResult{}, domain.ErrInvalidAmount
	}
	t, err := s.resolve(ctx, q)
	if err != nil {
		return domain.SlippageResult{}, err
	}
	book, err := s.mergedBook(ctx, t)
	if err != nil {
		return domain.SlippageResult{}, err
	}
	return analytics.SimulateSell(book.Bids, amountUSD, s.referencePrice(ctx, book)), nil
}

// Efficiency scores the market's two outcome prices. Each price is the
// provider reference for that token, falling back to the market's published
// outcome price. Missing prices are handled by the scorer.
func (s *AnalyticsService) Efficiency(ctx context.Context, q TokenQuery) (domain.EfficiencyReport, error) {
	t, err := s.resolve(ctx, q)
	if err != nil {
		return domain.EfficiencyReport{}, err
	}

	m := t.market
	if !m.HasTokens() {
		m.TokenIDs = [2]string{t.token.ID, t.token.ComplementID}
	}

	var prices [2]float64
	g, gctx := errgroup.WithContext(ctx)
	for i, tokenID := range m.TokenIDs {
		if tokenID == "" {
			prices[i] = m.OutcomePrices[i]
			continue
		}
		g.Go(func() error {
			p, err := withTimeout(gctx, s.cfg.FetchTimeout, func(ctx context.Context) (float64, error) {
				return s.provider.FetchReferencePrice(ctx, tokenID)
			})
			if err != nil || !analytics.UsablePrice(p) {
				p = m.OutcomePrices[i]
			}
			prices[i] = p
			return nil
		})
	}
	_ = g.Wait()

	rep := analytics.ScoreEfficiency(m.ID, prices)
	if rep.Defaulted {
		s.logger.InfoContext(ctx, "efficiency defaulted to even split",
			slog.String("market_id", m.ID),
			slog.Float64("price_a", prices[0]),
			slog.Float64("price_b", prices[1]),
		)
	}
	return rep, nil
}

// withTimeout runs fn under a context bounded by d.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
