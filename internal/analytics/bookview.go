package analytics

import "github.com/alanyoungcy/polyanalytics/internal/domain"

// BookView summarises a merged book for display alongside its ladder.
func BookView(book domain.MergedOrderBook, referencePrice float64) domain.MergedBookView {
	v := domain.MergedBookView{
		MergedOrderBook: book,
		BestBid:         book.BestBid(),
		BestAsk:         book.BestAsk(),
		Spread:          book.Spread(),
		Midpoint:        book.Midpoint(),
		ReferencePrice:  referencePrice,
		Crossed:         book.Crossed(),
	}
	for _, side := range [][]domain.OrderLevel{book.Bids, book.Asks} {
		for _, lvl := range side {
			if lvl.Origin == domain.OriginSynthetic {
				v.SyntheticLevels++
			} else {
				v.DirectLevels++
			}
		}
	}
	return v
}

// PresentBookView rounds the derived touch figures; ladder prices are left
// as merged.
func PresentBookView(v domain.MergedBookView) domain.MergedBookView {
	v.BestBid = RoundPrice(v.BestBid)
	v.BestAsk = RoundPrice(v.BestAsk)
	v.Spread = RoundPrice(v.Spread)
	v.Midpoint = RoundPrice(v.Midpoint)
	v.ReferencePrice = RoundPrice(v.ReferencePrice)
	return v
}
