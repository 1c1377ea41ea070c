package analytics

import "github.com/alanyoungcy/polyanalytics/internal/domain"

// The Present* helpers return copies rounded for display. Computation always
// runs on the unrounded values.

func PresentSlippage(r domain.SlippageResult) domain.SlippageResult {
	r.AmountRequested = RoundUSD(r.AmountRequested)
	r.AmountFilled = RoundUSD(r.AmountFilled)
	r.SharesFilled = RoundUSD(r.SharesFilled)
	r.AvgPrice = RoundPrice(r.AvgPrice)
	r.WorstPrice = RoundPrice(r.WorstPrice)
	r.ReferencePrice = RoundPrice(r.ReferencePrice)
	r.SlippagePercent = RoundPercent(r.SlippagePercent)
	return r
}

func PresentLiquidity(r domain.LiquidityReport) domain.LiquidityReport {
	r.BestBid = RoundPrice(r.BestBid)
	r.BestAsk = RoundPrice(r.BestAsk)
	r.Spread = RoundPrice(r.Spread)
	r.SpreadBps = RoundPercent(r.SpreadBps)
	r.ReferencePrice = RoundPrice(r.ReferencePrice)
	r.BidDepth = RoundUSD(r.BidDepth)
	r.AskDepth = RoundUSD(r.AskDepth)
	r.BidDepthWindow = RoundUSD(r.BidDepthWindow)
	r.AskDepthWindow = RoundUSD(r.AskDepthWindow)
	slips := make([]domain.SlippageResult, len(r.Slippage))
	for i, s := range r.Slippage {
		slips[i] = PresentSlippage(s)
	}
	r.Slippage = slips
	return r
}

func PresentEfficiency(r domain.EfficiencyReport) domain.EfficiencyReport {
	r.OutcomePrices = [2]float64{RoundPrice(r.OutcomePrices[0]), RoundPrice(r.OutcomePrices[1])}
	r.SumOfOutcomes = RoundPrice(r.SumOfOutcomes)
	r.Vig = RoundPrice(r.Vig)
	r.VigPercent = RoundPercent(r.VigPercent)
	r.TrueProbabilities = [2]float64{RoundPrice(r.TrueProbabilities[0]), RoundPrice(r.TrueProbabilities[1])}
	return r
}

func PresentOpportunity(o domain.ArbitrageOpportunity) domain.ArbitrageOpportunity {
	o.BuyYesAt = RoundPrice(o.BuyYesAt)
	o.BuyNoAt = RoundPrice(o.BuyNoAt)
	o.TotalCost = RoundPrice(o.TotalCost)
	o.Edge = RoundPrice(o.Edge)
	o.EdgeBps = RoundPercent(o.EdgeBps)
	return o
}

func PresentCandidate(c domain.SpreadCandidate) domain.SpreadCandidate {
	c.BestBid = RoundPrice(c.BestBid)
	c.BestAsk = RoundPrice(c.BestAsk)
	c.Spread = RoundPrice(c.Spread)
	c.SpreadBps = RoundPercent(c.SpreadBps)
	return c
}

// PresentScan rounds every opportunity and candidate in a scan report.
func PresentScan(r domain.ScanReport) domain.ScanReport {
	opps := make([]domain.ArbitrageOpportunity, len(r.Opportunities))
	for i, o := range r.Opportunities {
		opps[i] = PresentOpportunity(o)
	}
	cands := make([]domain.SpreadCandidate, len(r.SpreadCandidates))
	for i, c := range r.SpreadCandidates {
		cands[i] = PresentCandidate(c)
	}
	markets := make([]domain.MarketScan, len(r.Markets))
	for i, m := range r.Markets {
		m.BestAskA = RoundPrice(m.BestAskA)
		m.BestAskB = RoundPrice(m.BestAskB)
		m.TotalCost = RoundPrice(m.TotalCost)
		m.SpreadA = RoundPrice(m.SpreadA)
		markets[i] = m
	}
	r.Opportunities = opps
	r.SpreadCandidates = cands
	r.Markets = markets
	return r
}
