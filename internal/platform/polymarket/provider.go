package polymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// Provider is the Polymarket implementation of the market data ports. Books
// and midpoints come from the CLOB, market metadata from Gamma. When a
// BookCache is set, fresh snapshots are served from it and every fetched book
// is written back.
type Provider struct {
	clob   *ClobClient
	gamma  *GammaClient
	cache  domain.BookCache
	logger *slog.Logger
}

// NewProvider creates a Provider. cache may be nil.
func NewProvider(clob *ClobClient, gamma *GammaClient, cache domain.BookCache, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		clob:   clob,
		gamma:  gamma,
		cache:  cache,
		logger: logger.With(slog.String("component", "polymarket_provider")),
	}
}

// FetchOrderBook returns the raw book for tokenID.
func (p *Provider) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	if p.cache != nil {
		snap, err := p.cache.GetSnapshot(ctx, tokenID)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			p.logger.WarnContext(ctx, "book cache read failed",
				slog.String("token_id", tokenID), slog.String("error", err.Error()))
		}
	}

	book, err := p.clob.GetBook(ctx, tokenID)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("%w: %w", domain.ErrProviderFetch, err)
	}
	snap := book.ToDomain(tokenID)

	if p.cache != nil {
		if err := p.cache.SetSnapshot(ctx, snap); err != nil {
			p.logger.WarnContext(ctx, "book cache write failed",
				slog.String("token_id", tokenID), slog.String("error", err.Error()))
		}
	}
	return snap, nil
}

// FetchMarketTokens returns the market with its two token ids.
func (p *Provider) FetchMarketTokens(ctx context.Context, marketID string) (domain.Market, error) {
	m, err := p.gamma.GetMarket(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("%w: %w", domain.ErrProviderFetch, err)
	}
	if !m.HasTokens() {
		return domain.Market{}, fmt.Errorf("%w: market %s has no clob tokens", domain.ErrNotFound, marketID)
	}
	return m, nil
}

// FetchReferencePrice returns the CLOB midpoint for tokenID.
func (p *Provider) FetchReferencePrice(ctx context.Context, tokenID string) (float64, error) {
	mid, err := p.clob.GetMidpoint(ctx, tokenID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrProviderFetch, err)
	}
	return mid, nil
}

// ResolveMarketByToken finds the market that owns tokenID.
func (p *Provider) ResolveMarketByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	m, err := p.gamma.GetMarketByToken(ctx, tokenID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("%w: %w", domain.ErrProviderFetch, err)
	}
	return m, nil
}

// ListActiveMarkets returns scan candidates ordered by volume.
func (p *Provider) ListActiveMarkets(ctx context.Context, limit int, minVolume float64) ([]domain.Market, error) {
	markets, err := p.gamma.ListActiveMarkets(ctx, limit, minVolume)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderFetch, err)
	}
	return markets, nil
}

var (
	_ domain.MarketDataProvider = (*Provider)(nil)
	_ domain.TokenResolver      = (*Provider)(nil)
	_ domain.MarketLister       = (*Provider)(nil)
)
