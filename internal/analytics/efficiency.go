package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// ClassifyVig grades an overround. Positive vig at or beyond 5% is poor,
// negative vig at or beyond 5% is exploitable.
func ClassifyVig(vig float64) domain.EfficiencyClass {
	abs := math.Abs(vig)
	switch {
	case abs < 0.005:
		return domain.EfficiencyExcellent
	case abs < 0.02:
		return domain.EfficiencyGood
	case abs < 0.05:
		return domain.EfficiencyFair
	case vig > 0:
		return domain.EfficiencyPoor
	default:
		return domain.EfficiencyExploitable
	}
}

// UsablePrice reports whether p can serve as an outcome price: finite and in
// (0,1].
func UsablePrice(p float64) bool {
	return p > 0 && p <= 1 && !math.IsInf(p, 0)
}

// ScoreEfficiency computes the vig of a binary market from its two outcome
// prices. A missing, non-finite or out-of-range price falls back to an even
// 0.5/0.5 split and marks the report as defaulted.
func ScoreEfficiency(marketID string, prices [2]float64) domain.EfficiencyReport {
	rep := domain.EfficiencyReport{
		MarketID:  marketID,
		Timestamp: time.Now().UTC(),
	}
	if !UsablePrice(prices[0]) || !UsablePrice(prices[1]) {
		prices = [2]float64{0.5, 0.5}
		rep.Defaulted = true
	}
	rep.OutcomePrices = prices

	a := decimal.NewFromFloat(prices[0])
	b := decimal.NewFromFloat(prices[1])
	sum := a.Add(b)
	vig := sum.Sub(decimal.NewFromInt(1))

	rep.SumOfOutcomes = sum.InexactFloat64()
	rep.Vig = vig.InexactFloat64()
	rep.VigPercent = vig.Mul(decimal.NewFromInt(100)).InexactFloat64()
	rep.TrueProbabilities = [2]float64{
		a.Div(sum).InexactFloat64(),
		b.Div(sum).InexactFloat64(),
	}
	rep.Classification = ClassifyVig(rep.Vig)
	return rep
}
