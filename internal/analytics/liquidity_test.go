package analytics

import (
	"testing"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		slip1k float64
		slip5k float64
		spread float64
		want   domain.LiquidityClass
	}{
		{"excellent", 0.5, 1.9, 0.015, domain.LiquidityExcellent},
		{"slippage just over excellent", 0.5, 2.1, 0.015, domain.LiquidityGood},
		{"spread blocks excellent", 0.5, 1.0, 0.025, domain.LiquidityGood},
		{"moderate", 1, 7, 0.04, domain.LiquidityModerate},
		{"poor on wide spread", 5, 3, 0.2, domain.LiquidityPoor},
		{"poor on deep slippage", 19.9, 50, 0.01, domain.LiquidityPoor},
		{"illiquid", 20, 60, 0.5, domain.LiquidityIlliquid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.slip1k, tt.slip5k, tt.spread); got != tt.want {
				t.Errorf("Classify(%v, %v, %v) = %s, want %s", tt.slip1k, tt.slip5k, tt.spread, got, tt.want)
			}
		})
	}
}

func TestDepth(t *testing.T) {
	levels := ladder([2]float64{0.50, 100}, [2]float64{0.49, 200}, [2]float64{0.40, 1000})

	if got := DepthUSD(levels); !approx(got, 50+98+400, 1e-9) {
		t.Errorf("DepthUSD = %v, want 548", got)
	}
	if got := DepthWithin(levels, 0.5, 0.02); !approx(got, 50+98, 1e-9) {
		t.Errorf("DepthWithin = %v, want 148", got)
	}
	if got := DepthWithin(levels, 0, 0.02); got != 0 {
		t.Errorf("DepthWithin with zero reference = %v, want 0", got)
	}
}

func TestSpreadBps(t *testing.T) {
	if got := SpreadBps(0.02, 0.5); !approx(got, 400, 1e-9) {
		t.Errorf("SpreadBps = %v, want 400", got)
	}
	if got := SpreadBps(0.02, 0); got != 0 {
		t.Errorf("SpreadBps with zero reference = %v, want 0", got)
	}
}

func TestResolveReference(t *testing.T) {
	book := domain.MergedOrderBook{
		Bids: ladder([2]float64{0.40, 10}),
		Asks: ladder([2]float64{0.60, 10}),
	}
	if got := ResolveReference(book, 0.55); got != 0.55 {
		t.Errorf("fetched reference = %v, want 0.55", got)
	}
	if got := ResolveReference(book, 0); got != 0.5 {
		t.Errorf("midpoint fallback = %v, want 0.5", got)
	}
	if got := ResolveReference(domain.MergedOrderBook{Bids: book.Bids}, 0); got != 0.4 {
		t.Errorf("one-sided fallback = %v, want 0.4", got)
	}
	if got := ResolveReference(domain.MergedOrderBook{}, 0); got != 0 {
		t.Errorf("empty fallback = %v, want 0", got)
	}
}

func TestAnalyzeLiquidityDeepBook(t *testing.T) {
	book := domain.MergedOrderBook{
		TokenID: "yes",
		Bids:    ladder([2]float64{0.50, 50000}),
		Asks:    ladder([2]float64{0.51, 50000}),
	}

	got := AnalyzeLiquidity(book, 0.505, LiquidityOptions{})

	if got.Classification != domain.LiquidityExcellent {
		t.Errorf("Classification = %s, want excellent", got.Classification)
	}
	if !approx(got.Spread, 0.01, 1e-9) {
		t.Errorf("Spread = %v, want 0.01", got.Spread)
	}
	if len(got.Slippage) != 3 {
		t.Fatalf("got %d slippage tiers, want 3", len(got.Slippage))
	}
	for _, s := range got.Slippage {
		if !s.CanFill {
			t.Errorf("tier %v cannot fill on deep book", s.AmountRequested)
		}
	}
	if got.DepthWindowPct != DefaultDepthWindowPct {
		t.Errorf("DepthWindowPct = %v, want default", got.DepthWindowPct)
	}
}

func TestAnalyzeLiquidityEmptyBook(t *testing.T) {
	got := AnalyzeLiquidity(domain.MergedOrderBook{TokenID: "yes"}, 0, LiquidityOptions{})

	if got.Classification != domain.LiquidityIlliquid {
		t.Errorf("Classification = %s, want illiquid", got.Classification)
	}
	if got.BidDepth != 0 || got.AskDepth != 0 {
		t.Errorf("depth = %v/%v, want 0/0", got.BidDepth, got.AskDepth)
	}
	if got.BestBid != 0 || got.BestAsk != 1 {
		t.Errorf("touch = %v/%v, want sentinels 0/1", got.BestBid, got.BestAsk)
	}
}

func TestAnalyzeLiquidityAsksOnly(t *testing.T) {
	book := domain.MergedOrderBook{Asks: ladder([2]float64{0.52, 100000})}

	got := AnalyzeLiquidity(book, 0.51, LiquidityOptions{})

	if got.Classification != domain.LiquidityIlliquid {
		t.Errorf("Classification = %s, want illiquid", got.Classification)
	}
}
