package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func binaryMarket() domain.Market {
	return domain.Market{
		ID:            "m1",
		Question:      "Will it rain?",
		Outcomes:      [2]string{"Yes", "No"},
		TokenIDs:      [2]string{"yes", "no"},
		OutcomePrices: [2]float64{0.6, 0.4},
	}
}

func TestAnalyticsMissingIdentifier(t *testing.T) {
	svc := NewAnalyticsService(newFakeProvider(), nil, AnalyticsConfig{}, nil)
	ctx := context.Background()

	if _, err := svc.OrderBook(ctx, TokenQuery{}); !errors.Is(err, domain.ErrMissingIdentifier) {
		t.Errorf("OrderBook err = %v", err)
	}
	if _, err := svc.Liquidity(ctx, TokenQuery{TokenID: "  "}, 0); !errors.Is(err, domain.ErrMissingIdentifier) {
		t.Errorf("Liquidity err = %v", err)
	}
	if _, err := svc.Slippage(ctx, TokenQuery{}, 100); !errors.Is(err, domain.ErrMissingIdentifier) {
		t.Errorf("Slippage err = %v", err)
	}
	if _, err := svc.Efficiency(ctx, TokenQuery{}); !errors.Is(err, domain.ErrMissingIdentifier) {
		t.Errorf("Efficiency err = %v", err)
	}
}

func TestAnalyticsSlippageInvalidAmount(t *testing.T) {
	svc := NewAnalyticsService(newFakeProvider(), nil, AnalyticsConfig{}, nil)
	for _, amt := range []float64{0, -5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := svc.Slippage(context.Background(), TokenQuery{TokenID: "yes"}, amt); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("amount %v: err = %v", amt, err)
		}
	}
}

func TestAnalyticsOrderBookWithComplement(t *testing.T) {
	p := newFakeProvider()
	p.books["yes"] = snapshot("yes", [][2]float64{{0.40, 100}}, [][2]float64{{0.60, 100}})
	p.books["no"] = snapshot("no", [][2]float64{{0.45, 200}}, [][2]float64{{0.50, 300}})
	resolver := fakeResolver{markets: map[string]domain.Market{"yes": binaryMarket()}}
	svc := NewAnalyticsService(p, resolver, AnalyticsConfig{}, nil)

	view, err := svc.OrderBook(context.Background(), TokenQuery{TokenID: "yes"})
	if err != nil {
		t.Fatalf("OrderBook: %v", err)
	}
	if !view.HasComplement || view.ComplementID != "no" {
		t.Errorf("HasComplement=%v ComplementID=%q", view.HasComplement, view.ComplementID)
	}
	if !approx(view.BestBid, 0.50, 1e-12) || !approx(view.BestAsk, 0.55, 1e-12) {
		t.Errorf("touch = %v / %v, want 0.50 / 0.55", view.BestBid, view.BestAsk)
	}
	if view.Bids[0].Origin != domain.OriginSynthetic {
		t.Errorf("best bid origin = %q", view.Bids[0].Origin)
	}
	if view.DirectLevels != 2 || view.SyntheticLevels != 2 {
		t.Errorf("levels direct=%d synthetic=%d", view.DirectLevels, view.SyntheticLevels)
	}
	if !approx(view.ReferencePrice, 0.525, 1e-12) {
		t.Errorf("reference = %v, want midpoint 0.525", view.ReferencePrice)
	}
	if view.MarketID != "m1" || view.Question != "Will it rain?" {
		t.Errorf("market = %q %q", view.MarketID, view.Question)
	}
}

func TestAnalyticsDegradesWithoutComplement(t *testing.T) {
	tests := []struct {
		name     string
		resolver domain.TokenResolver
		query    TokenQuery
		failNo   bool
	}{
		{"no resolver", nil, TokenQuery{TokenID: "yes"}, false},
		{"resolver miss", fakeResolver{markets: map[string]domain.Market{}}, TokenQuery{TokenID: "yes"}, false},
		{"unknown market", nil, TokenQuery{TokenID: "yes", MarketID: "missing"}, false},
		{"complement fetch fails", fakeResolver{markets: map[string]domain.Market{"yes": binaryMarket()}}, TokenQuery{TokenID: "yes"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider()
			p.books["yes"] = snapshot("yes", [][2]float64{{0.40, 100}}, [][2]float64{{0.60, 100}})
			p.books["no"] = snapshot("no", [][2]float64{{0.45, 200}}, [][2]float64{{0.50, 300}})
			if tt.failNo {
				p.failBook["no"] = domain.ErrProviderFetch
			}
			svc := NewAnalyticsService(p, tt.resolver, AnalyticsConfig{}, nil)

			view, err := svc.OrderBook(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("OrderBook: %v", err)
			}
			if view.HasComplement {
				t.Error("HasComplement = true, want direct-only book")
			}
			if view.SyntheticLevels != 0 || view.BestBid != 0.40 || view.BestAsk != 0.60 {
				t.Errorf("view = %+v", view)
			}
		})
	}
}

func TestAnalyticsMarketOnlyUsesFirstToken(t *testing.T) {
	p := newFakeProvider()
	p.markets["m1"] = binaryMarket()
	p.books["yes"] = snapshot("yes", [][2]float64{{0.40, 100}}, nil)
	svc := NewAnalyticsService(p, nil, AnalyticsConfig{}, nil)

	view, err := svc.OrderBook(context.Background(), TokenQuery{MarketID: "m1"})
	if err != nil {
		t.Fatalf("OrderBook: %v", err)
	}
	if view.TokenID != "yes" || view.ComplementID != "no" {
		t.Errorf("token=%q complement=%q", view.TokenID, view.ComplementID)
	}
	if p.calls["book:no"] != 1 {
		t.Errorf("complement book fetched %d times", p.calls["book:no"])
	}

	if _, err := svc.OrderBook(context.Background(), TokenQuery{MarketID: "nope"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown market err = %v", err)
	}
}

func TestAnalyticsPrimaryFetchFailurePropagates(t *testing.T) {
	p := newFakeProvider()
	p.failBook["yes"] = domain.ErrProviderFetch
	svc := NewAnalyticsService(p, nil, AnalyticsConfig{}, nil)

	if _, err := svc.Liquidity(context.Background(), TokenQuery{TokenID: "yes"}, 0); !errors.Is(err, domain.ErrProviderFetch) {
		t.Errorf("err = %v, want ErrProviderFetch", err)
	}
}

func TestAnalyticsSlippageScenario(t *testing.T) {
	p := newFakeProvider()
	p.books["yes"] = snapshot("yes", [][2]float64{{0.50, 1000}, {0.45, 2000}}, nil)
	p.refs["yes"] = 0.50
	svc := NewAnalyticsService(p, nil, AnalyticsConfig{}, nil)

	res, err := svc.Slippage(context.Background(), TokenQuery{TokenID: "yes"}, 1000)
	if err != nil {
		t.Fatalf("Slippage: %v", err)
	}
	if !approx(res.AvgPrice, 0.4737, 1e-4) || !approx(res.SlippagePercent, 5.26, 0.01) || !res.CanFill {
		t.Errorf("result = %+v", res)
	}

	res, err = svc.Slippage(context.Background(), TokenQuery{TokenID: "yes"}, 2000)
	if err != nil {
		t.Fatalf("Slippage: %v", err)
	}
	if res.CanFill || !approx(res.AmountFilled, 1400, 1e-9) {
		t.Errorf("result = %+v", res)
	}
}

func TestAnalyticsLiquidity(t *testing.T) {
	t.Run("empty book is illiquid", func(t *testing.T) {
		svc := NewAnalyticsService(newFakeProvider(), nil, AnalyticsConfig{}, nil)
		rep, err := svc.Liquidity(context.Background(), TokenQuery{TokenID: "ghost"}, 0)
		if err != nil {
			t.Fatalf("Liquidity: %v", err)
		}
		if rep.Classification != domain.LiquidityIlliquid || rep.BidDepth != 0 || rep.AskDepth != 0 {
			t.Errorf("report = %+v", rep)
		}
		if rep.BestBid != 0 || rep.BestAsk != 1 {
			t.Errorf("sentinels = %v / %v", rep.BestBid, rep.BestAsk)
		}
	})

	t.Run("reference falls back to midpoint and window is applied", func(t *testing.T) {
		p := newFakeProvider()
		p.books["yes"] = snapshot("yes",
			[][2]float64{{0.495, 100_000}, {0.40, 1000}},
			[][2]float64{{0.505, 100_000}})
		svc := NewAnalyticsService(p, nil, AnalyticsConfig{DepthWindowPct: 0.05}, nil)

		rep, err := svc.Liquidity(context.Background(), TokenQuery{TokenID: "yes"}, 0)
		if err != nil {
			t.Fatalf("Liquidity: %v", err)
		}
		if !approx(rep.ReferencePrice, 0.50, 1e-12) {
			t.Errorf("reference = %v", rep.ReferencePrice)
		}
		if rep.DepthWindowPct != 0.05 {
			t.Errorf("window = %v", rep.DepthWindowPct)
		}
		if !approx(rep.BidDepthWindow, 49_500, 1e-6) {
			t.Errorf("bid window depth = %v, want 49500", rep.BidDepthWindow)
		}
		if rep.Classification != domain.LiquidityExcellent {
			t.Errorf("classification = %q", rep.Classification)
		}
		if len(rep.Slippage) != 3 {
			t.Errorf("slippage tiers = %d", len(rep.Slippage))
		}
	})
}

func TestAnalyticsEfficiency(t *testing.T) {
	t.Run("reference prices", func(t *testing.T) {
		p := newFakeProvider()
		p.markets["m1"] = binaryMarket()
		p.refs["yes"] = 0.52
		p.refs["no"] = 0.51
		svc := NewAnalyticsService(p, nil, AnalyticsConfig{}, nil)

		rep, err := svc.Efficiency(context.Background(), TokenQuery{MarketID: "m1"})
		if err != nil {
			t.Fatalf("Efficiency: %v", err)
		}
		if rep.Classification != domain.EfficiencyFair || !approx(rep.Vig, 0.03, 1e-12) {
			t.Errorf("report = %+v", rep)
		}
		if !approx(rep.TrueProbabilities[0], 0.505, 1e-3) || !approx(rep.TrueProbabilities[1], 0.495, 1e-3) {
			t.Errorf("true probabilities = %v", rep.TrueProbabilities)
		}
	})

	t.Run("falls back to published outcome prices", func(t *testing.T) {
		p := newFakeProvider()
		p.markets["m1"] = binaryMarket()
		svc := NewAnalyticsService(p, nil, AnalyticsConfig{}, nil)

		rep, err := svc.Efficiency(context.Background(), TokenQuery{MarketID: "m1"})
		if err != nil {
			t.Fatalf("Efficiency: %v", err)
		}
		if rep.Defaulted || rep.OutcomePrices != [2]float64{0.6, 0.4} {
			t.Errorf("report = %+v", rep)
		}
		if rep.Classification != domain.EfficiencyExcellent {
			t.Errorf("classification = %q", rep.Classification)
		}
	})

	t.Run("non-finite reference falls back to published price", func(t *testing.T) {
		p := newFakeProvider()
		p.markets["m1"] = binaryMarket()
		p.refs["yes"] = math.Inf(1)
		p.refs["no"] = 0.4
		svc := NewAnalyticsService(p, nil, AnalyticsConfig{}, nil)

		rep, err := svc.Efficiency(context.Background(), TokenQuery{MarketID: "m1"})
		if err != nil {
			t.Fatalf("Efficiency: %v", err)
		}
		if rep.Defaulted || rep.OutcomePrices != [2]float64{0.6, 0.4} {
			t.Errorf("report = %+v", rep)
		}
	})

	t.Run("no prices defaults to even split", func(t *testing.T) {
		svc := NewAnalyticsService(newFakeProvider(), nil, AnalyticsConfig{}, nil)
		rep, err := svc.Efficiency(context.Background(), TokenQuery{TokenID: "lonely"})
		if err != nil {
			t.Fatalf("Efficiency: %v", err)
		}
		if !rep.Defaulted || rep.TrueProbabilities != [2]float64{0.5, 0.5} {
			t.Errorf("report = %+v", rep)
		}
	})
}
