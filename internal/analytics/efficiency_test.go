package analytics

import (
	"math"
	"testing"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

func TestClassifyVig(t *testing.T) {
	tests := []struct {
		vig  float64
		want domain.EfficiencyClass
	}{
		{0, domain.EfficiencyExcellent},
		{0.004, domain.EfficiencyExcellent},
		{-0.004, domain.EfficiencyExcellent},
		{0.005, domain.EfficiencyGood},
		{0.019, domain.EfficiencyGood},
		{0.03, domain.EfficiencyFair},
		{-0.03, domain.EfficiencyFair},
		{0.05, domain.EfficiencyPoor},
		{0.2, domain.EfficiencyPoor},
		{-0.05, domain.EfficiencyExploitable},
		{-0.1, domain.EfficiencyExploitable},
	}

	for _, tt := range tests {
		if got := ClassifyVig(tt.vig); got != tt.want {
			t.Errorf("ClassifyVig(%v) = %s, want %s", tt.vig, got, tt.want)
		}
	}
}

func TestScoreEfficiency(t *testing.T) {
	got := ScoreEfficiency("m1", [2]float64{0.52, 0.51})

	if got.SumOfOutcomes != 1.03 {
		t.Errorf("SumOfOutcomes = %v, want 1.03", got.SumOfOutcomes)
	}
	if got.Vig != 0.03 {
		t.Errorf("Vig = %v, want 0.03", got.Vig)
	}
	if got.Classification != domain.EfficiencyFair {
		t.Errorf("Classification = %s, want fair", got.Classification)
	}
	if !approx(got.TrueProbabilities[0], 0.505, 0.001) || !approx(got.TrueProbabilities[1], 0.495, 0.001) {
		t.Errorf("TrueProbabilities = %v, want ~[0.505 0.495]", got.TrueProbabilities)
	}
	if !approx(got.TrueProbabilities[0]+got.TrueProbabilities[1], 1, 1e-12) {
		t.Errorf("probabilities sum to %v", got.TrueProbabilities[0]+got.TrueProbabilities[1])
	}
	if got.Defaulted {
		t.Error("Defaulted = true for valid prices")
	}
}

func TestScoreEfficiencyMissingPrice(t *testing.T) {
	for _, prices := range [][2]float64{{0, 0.5}, {0.4, 0}, {0, 0}} {
		got := ScoreEfficiency("m1", prices)
		if !got.Defaulted {
			t.Errorf("%v: Defaulted = false", prices)
		}
		if got.TrueProbabilities != [2]float64{0.5, 0.5} {
			t.Errorf("%v: TrueProbabilities = %v, want even split", prices, got.TrueProbabilities)
		}
	}
}

func TestScoreEfficiencyDegeneratePrice(t *testing.T) {
	tests := []struct {
		name   string
		prices [2]float64
	}{
		{"positive infinity", [2]float64{math.Inf(1), 0.5}},
		{"negative infinity", [2]float64{0.5, math.Inf(-1)}},
		{"not a number", [2]float64{math.NaN(), 0.5}},
		{"above one", [2]float64{1.5, 0.4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreEfficiency("m1", tt.prices)
			if !got.Defaulted {
				t.Error("Defaulted = false")
			}
			if got.OutcomePrices != [2]float64{0.5, 0.5} || got.Classification != domain.EfficiencyExcellent {
				t.Errorf("report = %+v", got)
			}
			// Must survive presentation rounding.
			_ = PresentEfficiency(got)
		})
	}

	if got := ScoreEfficiency("m1", [2]float64{1, 0.02}); got.Defaulted {
		t.Errorf("price of exactly 1 treated as missing: %+v", got)
	}
}
