package domain

import "time"

// SlippageResult is the outcome of selling a USD notional into a bid ladder.
type SlippageResult struct {
	AmountRequested float64 `json:"amount_requested"`
	AmountFilled    float64 `json:"amount_filled"`
	SharesFilled    float64 `json:"shares_filled"`
	AvgPrice        float64 `json:"avg_price"`
	WorstPrice      float64 `json:"worst_price"`
	ReferencePrice  float64 `json:"reference_price"`
	SlippagePercent float64 `json:"slippage_percent"`
	CanFill         bool    `json:"can_fill"`
}

// LiquidityClass is an ordered tier; excellent is best.
type LiquidityClass string

const (
	LiquidityExcellent LiquidityClass = "excellent"
	LiquidityGood      LiquidityClass = "good"
	LiquidityModerate  LiquidityClass = "moderate"
	LiquidityPoor      LiquidityClass = "poor"
	LiquidityIlliquid  LiquidityClass = "illiquid"
)

// LiquidityReport summarises the merged book for one token.
type LiquidityReport struct {
	TokenID        string           `json:"token_id"`
	MarketID       string           `json:"market_id,omitempty"`
	HasComplement  bool             `json:"has_complement"`
	BestBid        float64          `json:"best_bid"`
	BestAsk        float64          `json:"best_ask"`
	Spread         float64          `json:"spread"`
	SpreadBps      float64          `json:"spread_bps"`
	ReferencePrice float64          `json:"reference_price"`
	BidDepth       float64          `json:"bid_depth_usd"`
	AskDepth       float64          `json:"ask_depth_usd"`
	DepthWindowPct float64          `json:"depth_window_pct"`
	BidDepthWindow float64          `json:"bid_depth_window_usd"`
	AskDepthWindow float64          `json:"ask_depth_window_usd"`
	Crossed        bool             `json:"crossed"`
	Slippage       []SlippageResult `json:"slippage"`
	Classification LiquidityClass   `json:"classification"`
	Timestamp      time.Time        `json:"timestamp"`
}

// EfficiencyClass grades how close two outcome prices sum to 1.
type EfficiencyClass string

const (
	EfficiencyExcellent   EfficiencyClass = "excellent"
	EfficiencyGood        EfficiencyClass = "good"
	EfficiencyFair        EfficiencyClass = "fair"
	EfficiencyPoor        EfficiencyClass = "poor"
	EfficiencyExploitable EfficiencyClass = "exploitable"
)

// EfficiencyReport carries the overround of a binary market.
type EfficiencyReport struct {
	MarketID          string          `json:"market_id,omitempty"`
	OutcomePrices     [2]float64      `json:"outcome_prices"`
	SumOfOutcomes     float64         `json:"sum_of_outcomes"`
	Vig               float64         `json:"vig"`
	VigPercent        float64         `json:"vig_percent"`
	TrueProbabilities [2]float64      `json:"true_probabilities"`
	Classification    EfficiencyClass `json:"classification"`
	Defaulted         bool            `json:"defaulted"`
	Timestamp         time.Time       `json:"timestamp"`
}
