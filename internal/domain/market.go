package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive  MarketStatus = "active"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusSettled MarketStatus = "settled"
)

// Market is a binary prediction market with two complementary outcome tokens.
type Market struct {
	ID            string
	Question      string
	Slug          string
	ConditionID   string
	Outcomes      [2]string  // e.g. ["Yes","No"]
	TokenIDs      [2]string  // CLOB token ids, same order as Outcomes
	OutcomePrices [2]float64 // last published prices, 0 when unknown
	Volume        float64
	Liquidity     float64
	Status        MarketStatus
	EndDate       *time.Time
}

// OutcomeToken is one side of a binary market.
type OutcomeToken struct {
	ID           string `json:"id"`
	MarketID     string `json:"market_id"`
	Outcome      string `json:"outcome,omitempty"`
	ComplementID string `json:"complement_id,omitempty"`
}

// HasTokens reports whether both token ids are known.
func (m Market) HasTokens() bool {
	return m.TokenIDs[0] != "" && m.TokenIDs[1] != ""
}

// Tokens returns both outcome tokens with their complements linked.
func (m Market) Tokens() [2]OutcomeToken {
	return [2]OutcomeToken{
		{ID: m.TokenIDs[0], MarketID: m.ID, Outcome: m.Outcomes[0], ComplementID: m.TokenIDs[1]},
		{ID: m.TokenIDs[1], MarketID: m.ID, Outcome: m.Outcomes[1], ComplementID: m.TokenIDs[0]},
	}
}

// Token returns the outcome token with the given id.
func (m Market) Token(tokenID string) (OutcomeToken, bool) {
	for _, t := range m.Tokens() {
		if t.ID != "" && t.ID == tokenID {
			return t, true
		}
	}
	return OutcomeToken{}, false
}
