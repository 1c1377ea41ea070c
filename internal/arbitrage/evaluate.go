package arbitrage

import (
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/polyanalytics/internal/analytics"
	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// Evaluation is the outcome of checking one market's pair of merged books.
type Evaluation struct {
	Summary     domain.MarketScan
	Opportunity *domain.ArbitrageOpportunity
	Candidate   *domain.SpreadCandidate
}

// Evaluate applies the arbitrage and wide-spread rules to a market. bookA and
// bookB are the merged books of the market's first and second token.
//
// A true arbitrage exists when buying both outcomes at their merged best asks
// costs less than arbThreshold. A spread candidate is any market whose first
// token has a two-sided merged book with spread above spreadThreshold.
func Evaluate(m domain.Market, bookA, bookB domain.MergedOrderBook, arbThreshold, spreadThreshold float64, now time.Time) Evaluation {
	askA := bookA.BestAsk()
	askB := bookB.BestAsk()
	total := askA + askB

	ev := Evaluation{
		Summary: domain.MarketScan{
			MarketID:  m.ID,
			BestAskA:  askA,
			BestAskB:  askB,
			TotalCost: total,
			SpreadA:   bookA.Spread(),
		},
	}

	if len(bookA.Asks) > 0 && len(bookB.Asks) > 0 && total < arbThreshold {
		edge := 1 - total
		ev.Opportunity = &domain.ArbitrageOpportunity{
			ID:         uuid.NewString(),
			MarketID:   m.ID,
			Question:   m.Question,
			YesTokenID: m.TokenIDs[0],
			NoTokenID:  m.TokenIDs[1],
			BuyYesAt:   askA,
			BuyNoAt:    askB,
			TotalCost:  total,
			Edge:       edge,
			EdgeBps:    edge * 10_000,
			DetectedAt: now,
		}
	}

	if len(bookA.Bids) > 0 && len(bookA.Asks) > 0 {
		if spread := bookA.Spread(); spread > spreadThreshold {
			ev.Candidate = &domain.SpreadCandidate{
				MarketID:  m.ID,
				Question:  m.Question,
				TokenID:   m.TokenIDs[0],
				BestBid:   bookA.BestBid(),
				BestAsk:   bookA.BestAsk(),
				Spread:    spread,
				SpreadBps: analytics.SpreadBps(spread, bookA.Midpoint()),
			}
		}
	}

	return ev
}
