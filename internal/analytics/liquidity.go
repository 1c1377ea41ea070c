package analytics

import (
	"math"
	"time"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// Notional sizes used for the slippage tiers of a liquidity report.
const (
	Tier1k  = 1_000.0
	Tier5k  = 5_000.0
	Tier10k = 10_000.0
)

// DefaultDepthWindowPct is the ±window around the reference price used for
// windowed depth.
const DefaultDepthWindowPct = 0.02

// LiquidityOptions tunes AnalyzeLiquidity.
type LiquidityOptions struct {
	DepthWindowPct float64
}

// DepthUSD sums size×price over levels.
func DepthUSD(levels []domain.OrderLevel) float64 {
	var total float64
	for _, lvl := range levels {
		total += lvl.Notional()
	}
	return total
}

// DepthWithin sums size×price over levels priced within ±pct of reference.
// A non-positive reference or pct yields zero.
func DepthWithin(levels []domain.OrderLevel, reference, pct float64) float64 {
	if reference <= 0 || pct <= 0 {
		return 0
	}
	band := reference * pct
	var total float64
	for _, lvl := range levels {
		if math.Abs(lvl.Price-reference) <= band {
			total += lvl.Notional()
		}
	}
	return total
}

// SpreadBps expresses spread in basis points of reference, 0 when the
// reference is not positive.
func SpreadBps(spread, reference float64) float64 {
	if reference <= 0 {
		return 0
	}
	return spread / reference * 10_000
}

// Classify assigns a liquidity tier from the 1k and 5k slippage percentages
// and the absolute spread. Rules are evaluated top-down.
func Classify(slip1k, slip5k, spread float64) domain.LiquidityClass {
	switch {
	case slip5k < 2 && spread < 0.02:
		return domain.LiquidityExcellent
	case slip5k < 5 && spread < 0.03:
		return domain.LiquidityGood
	case slip5k < 10 && spread < 0.05:
		return domain.LiquidityModerate
	case slip1k < 20:
		return domain.LiquidityPoor
	default:
		return domain.LiquidityIlliquid
	}
}

// ResolveReference picks the reference price for a book: the fetched value
// when usable, otherwise the merged midpoint, otherwise whichever touch exists.
func ResolveReference(book domain.MergedOrderBook, fetched float64) float64 {
	if fetched > 0 && fetched < 1 {
		return fetched
	}
	if mid := book.Midpoint(); mid > 0 {
		return mid
	}
	if len(book.Bids) > 0 {
		return book.Bids[0].Price
	}
	if len(book.Asks) > 0 {
		return book.Asks[0].Price
	}
	return 0
}

// AnalyzeLiquidity builds the full liquidity report for a merged book. A book
// with no bids cannot absorb a sale and is always illiquid.
func AnalyzeLiquidity(book domain.MergedOrderBook, referencePrice float64, opts LiquidityOptions) domain.LiquidityReport {
	window := opts.DepthWindowPct
	if window <= 0 {
		window = DefaultDepthWindowPct
	}

	rep := domain.LiquidityReport{
		TokenID:        book.TokenID,
		HasComplement:  book.HasComplement,
		BestBid:        book.BestBid(),
		BestAsk:        book.BestAsk(),
		Spread:         book.Spread(),
		ReferencePrice: referencePrice,
		BidDepth:       DepthUSD(book.Bids),
		AskDepth:       DepthUSD(book.Asks),
		DepthWindowPct: window,
		BidDepthWindow: DepthWithin(book.Bids, referencePrice, window),
		AskDepthWindow: DepthWithin(book.Asks, referencePrice, window),
		Crossed:        book.Crossed(),
		Timestamp:      book.Timestamp,
	}
	rep.SpreadBps = SpreadBps(rep.Spread, referencePrice)
	if rep.Timestamp.IsZero() {
		rep.Timestamp = time.Now().UTC()
	}

	slip1k := SimulateSell(book.Bids, Tier1k, referencePrice)
	slip5k := SimulateSell(book.Bids, Tier5k, referencePrice)
	slip10k := SimulateSell(book.Bids, Tier10k, referencePrice)
	rep.Slippage = []domain.SlippageResult{slip1k, slip5k, slip10k}

	if len(book.Bids) == 0 {
		rep.Classification = domain.LiquidityIlliquid
		return rep
	}
	rep.Classification = Classify(slip1k.SlippagePercent, slip5k.SlippagePercent, rep.Spread)
	return rep
}
