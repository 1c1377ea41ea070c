package domain

import "time"

// LevelOrigin records whether a ladder rung was posted on the token itself or
// derived from the complement token's book.
type LevelOrigin string

const (
	OriginDirect    LevelOrigin = "direct"
	OriginSynthetic LevelOrigin = "synthetic"
)

// PriceLevel is a single price+size entry as published by the venue.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is the raw book for one outcome token at a point in time.
type OrderbookSnapshot struct {
	AssetID   string
	MarketID  string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// OrderLevel is one rung of a merged ladder.
type OrderLevel struct {
	Price  float64     `json:"price"`
	Size   float64     `json:"size"`
	Origin LevelOrigin `json:"origin"`
}

// Notional is size × price in USD.
func (l OrderLevel) Notional() float64 {
	return l.Size * l.Price
}

// MergedOrderBook is the combined direct + synthetic ladder for one token.
// Bids are sorted by price descending, asks ascending. A crossed book
// (best bid >= best ask) is kept as-is.
type MergedOrderBook struct {
	TokenID       string       `json:"token_id"`
	ComplementID  string       `json:"complement_id,omitempty"`
	HasComplement bool         `json:"has_complement"`
	Bids          []OrderLevel `json:"bids"`
	Asks          []OrderLevel `json:"asks"`
	Timestamp     time.Time    `json:"timestamp"`
}

// BestBid returns the highest bid, or 0 when there are no bids.
func (b MergedOrderBook) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk returns the lowest ask, or 1 when there are no asks.
func (b MergedOrderBook) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 1
	}
	return b.Asks[0].Price
}

// Spread is BestAsk - BestBid using the empty-side sentinels.
func (b MergedOrderBook) Spread() float64 {
	return b.BestAsk() - b.BestBid()
}

// Midpoint returns the mid of the touch, or 0 unless both sides are present.
func (b MergedOrderBook) Midpoint() float64 {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return 0
	}
	return (b.Bids[0].Price + b.Asks[0].Price) / 2
}

// Crossed reports whether the best bid meets or exceeds the best ask.
func (b MergedOrderBook) Crossed() bool {
	return len(b.Bids) > 0 && len(b.Asks) > 0 && b.Bids[0].Price >= b.Asks[0].Price
}

// Empty reports whether neither side has any levels.
func (b MergedOrderBook) Empty() bool {
	return len(b.Bids) == 0 && len(b.Asks) == 0
}

// MergedBookView is the response shape for a single-token book query.
type MergedBookView struct {
	MergedOrderBook
	MarketID        string  `json:"market_id,omitempty"`
	Question        string  `json:"question,omitempty"`
	BestBid         float64 `json:"best_bid"`
	BestAsk         float64 `json:"best_ask"`
	Spread          float64 `json:"spread"`
	Midpoint        float64 `json:"midpoint"`
	ReferencePrice  float64 `json:"reference_price"`
	Crossed         bool    `json:"crossed"`
	DirectLevels    int     `json:"direct_levels"`
	SyntheticLevels int     `json:"synthetic_levels"`
}
