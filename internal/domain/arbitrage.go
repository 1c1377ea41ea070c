package domain

import "time"

// ArbitrageOpportunity is a market where buying both outcomes at the merged
// best asks costs less than the configured threshold.
type ArbitrageOpportunity struct {
	ID         string    `json:"id"`
	ScanID     string    `json:"scan_id,omitempty"`
	MarketID   string    `json:"market_id"`
	Question   string    `json:"question,omitempty"`
	YesTokenID string    `json:"yes_token_id"`
	NoTokenID  string    `json:"no_token_id"`
	BuyYesAt   float64   `json:"buy_yes_at"`
	BuyNoAt    float64   `json:"buy_no_at"`
	TotalCost  float64   `json:"total_cost"`
	Edge       float64   `json:"edge"`
	EdgeBps    float64   `json:"edge_bps"`
	DetectedAt time.Time `json:"detected_at"`
}

// SpreadCandidate is a market whose merged spread exceeds the configured
// threshold, a market-making rather than arbitrage signal.
type SpreadCandidate struct {
	MarketID  string  `json:"market_id"`
	Question  string  `json:"question,omitempty"`
	TokenID   string  `json:"token_id"`
	BestBid   float64 `json:"best_bid"`
	BestAsk   float64 `json:"best_ask"`
	Spread    float64 `json:"spread"`
	SpreadBps float64 `json:"spread_bps"`
}

// MarketScan is the per-market summary produced by one successful scan unit.
type MarketScan struct {
	MarketID  string  `json:"market_id"`
	BestAskA  float64 `json:"best_ask_a"`
	BestAskB  float64 `json:"best_ask_b"`
	TotalCost float64 `json:"total_cost"`
	SpreadA   float64 `json:"spread_a"`
}

// ScanReport is the ranked output of one arbitrage scan.
type ScanReport struct {
	ID               string                 `json:"id"`
	StartedAt        time.Time              `json:"started_at"`
	CompletedAt      time.Time              `json:"completed_at"`
	Requested        int                    `json:"requested"`
	Scanned          int                    `json:"scanned"`
	Failed           int                    `json:"failed"`
	Partial          bool                   `json:"partial"`
	ArbThreshold     float64                `json:"arb_threshold"`
	SpreadThreshold  float64                `json:"spread_threshold"`
	Markets          []MarketScan           `json:"markets"`
	Opportunities    []ArbitrageOpportunity `json:"opportunities"`
	SpreadCandidates []SpreadCandidate      `json:"spread_candidates"`
}
