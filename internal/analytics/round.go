package analytics

import "github.com/shopspring/decimal"

// Presentation precision.
const (
	pricePlaces   = 4
	percentPlaces = 2
	usdPlaces     = 2
)

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// RoundPrice rounds a price to 4 decimal places.
func RoundPrice(v float64) float64 { return round(v, pricePlaces) }

// RoundPercent rounds a percentage to 2 decimal places.
func RoundPercent(v float64) float64 { return round(v, percentPlaces) }

// RoundUSD rounds a notional to cents.
func RoundUSD(v float64) float64 { return round(v, usdPlaces) }
