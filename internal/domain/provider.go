package domain

import "context"

// MarketDataProvider is the read-only market data source the analytics core
// depends on.
type MarketDataProvider interface {
	FetchOrderBook(ctx context.Context, tokenID string) (OrderbookSnapshot, error)
	FetchMarketTokens(ctx context.Context, marketID string) (Market, error)
	// FetchReferencePrice is best effort; callers fall back to the merged
	// midpoint on error.
	FetchReferencePrice(ctx context.Context, tokenID string) (float64, error)
}

// TokenResolver finds the market that owns a token so its complement can be
// located.
type TokenResolver interface {
	ResolveMarketByToken(ctx context.Context, tokenID string) (Market, error)
}

// MarketLister discovers candidate markets for a scan.
type MarketLister interface {
	ListActiveMarkets(ctx context.Context, limit int, minVolume float64) ([]Market, error)
}
