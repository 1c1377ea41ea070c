// Package analytics computes liquidity, slippage and efficiency metrics over
// merged order books. Every function here is pure; callers own fetching.
package analytics

import (
	"math"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// fillEpsilon absorbs float drift when deciding whether a notional was filled.
const fillEpsilon = 1e-9

// SimulateSell walks bids from best to worst selling amountUSD of notional.
// Each level absorbs at most size×price USD. Slippage is measured against
// referencePrice; a non-positive reference yields zero slippage.
func SimulateSell(bids []domain.OrderLevel, amountUSD, referencePrice float64) domain.SlippageResult {
	res := domain.SlippageResult{
		AmountRequested: amountUSD,
		ReferencePrice:  referencePrice,
		WorstPrice:      referencePrice,
	}

	remaining := amountUSD
	for _, lvl := range bids {
		if remaining <= fillEpsilon {
			break
		}
		capacity := lvl.Notional()
		if capacity <= 0 || lvl.Price <= 0 {
			continue
		}
		take := math.Min(remaining, capacity)
		res.SharesFilled += take / lvl.Price
		res.AmountFilled += take
		remaining -= take
		res.WorstPrice = lvl.Price
	}

	if res.SharesFilled > 0 {
		res.AvgPrice = res.AmountFilled / res.SharesFilled
	}
	if referencePrice > 0 && amountUSD > 0 {
		res.SlippagePercent = math.Max(0, (referencePrice-res.AvgPrice)/referencePrice*100)
	}
	res.CanFill = remaining <= fillEpsilon
	return res
}
