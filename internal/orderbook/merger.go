// Package orderbook builds merged ladders for binary outcome tokens. A token's
// own book is combined with a synthetic book derived from its complement: an
// ask on the complement at q is a bid on the token at 1-q, and a complement
// bid at q is an ask at 1-q.
package orderbook

import (
	"math"
	"time"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

// Merger builds the merged ladder for a token from its own snapshot and, when
// known, its complement's.
type Merger interface {
	Merge(primary domain.OrderbookSnapshot, complement *domain.OrderbookSnapshot) domain.MergedOrderBook
}

// MergerFunc adapts a function to the Merger interface.
type MergerFunc func(primary domain.OrderbookSnapshot, complement *domain.OrderbookSnapshot) domain.MergedOrderBook

// Merge calls f.
func (f MergerFunc) Merge(primary domain.OrderbookSnapshot, complement *domain.OrderbookSnapshot) domain.MergedOrderBook {
	return f(primary, complement)
}

// Default is the Merger backed by Merge.
var Default Merger = MergerFunc(Merge)

// rung is a ladder entry keyed for the btree. seq keeps keys unique and
// preserves input order among equal prices of the same origin.
type rung struct {
	level domain.OrderLevel
	seq   int
}

// lessBid orders bids by price descending, direct before synthetic.
func lessBid(a, b rung) bool {
	if a.level.Price != b.level.Price {
		return a.level.Price > b.level.Price
	}
	return tieBreak(a, b)
}

// lessAsk orders asks by price ascending, direct before synthetic.
func lessAsk(a, b rung) bool {
	if a.level.Price != b.level.Price {
		return a.level.Price < b.level.Price
	}
	return tieBreak(a, b)
}

func tieBreak(a, b rung) bool {
	if a.level.Origin != b.level.Origin {
		return a.level.Origin == domain.OriginDirect
	}
	return a.seq < b.seq
}

// ladder accumulates one side of a merged book.
type ladder struct {
	tree *btree.BTreeG[rung]
	seq  int
}

func newLadder(less btree.LessFunc[rung]) *ladder {
	return &ladder{tree: btree.NewG(16, less)}
}

func (l *ladder) add(price, size float64, origin domain.LevelOrigin) {
	l.tree.ReplaceOrInsert(rung{
		level: domain.OrderLevel{Price: price, Size: size, Origin: origin},
		seq:   l.seq,
	})
	l.seq++
}

func (l *ladder) levels() []domain.OrderLevel {
	out := make([]domain.OrderLevel, 0, l.tree.Len())
	l.tree.Ascend(func(r rung) bool {
		out = append(out, r.level)
		return true
	})
	return out
}

// ValidPrice reports whether p lies strictly inside (0,1).
func ValidPrice(p float64) bool {
	return p > 0 && p < 1 && !math.IsNaN(p)
}

func validLevel(lvl domain.PriceLevel) bool {
	return ValidPrice(lvl.Price) && lvl.Size >= 0 && !math.IsNaN(lvl.Size) && !math.IsInf(lvl.Size, 0)
}

// Complement returns 1-p computed in decimal so that, for example, the
// complement of 0.52 is exactly the float64 nearest 0.48.
func Complement(p float64) float64 {
	return decimal.NewFromInt(1).Sub(decimal.NewFromFloat(p)).InexactFloat64()
}

// Merge returns the merged ladder for primary. complement may be nil, in which
// case the result contains direct levels only. A complement carrying the
// primary's own asset id is ignored the same way. Levels whose price, or
// derived price, falls outside (0,1) are dropped.
func Merge(primary domain.OrderbookSnapshot, complement *domain.OrderbookSnapshot) domain.MergedOrderBook {
	bids := newLadder(lessBid)
	asks := newLadder(lessAsk)

	for _, lvl := range primary.Bids {
		if validLevel(lvl) {
			bids.add(lvl.Price, lvl.Size, domain.OriginDirect)
		}
	}
	for _, lvl := range primary.Asks {
		if validLevel(lvl) {
			asks.add(lvl.Price, lvl.Size, domain.OriginDirect)
		}
	}

	merged := domain.MergedOrderBook{
		TokenID:   primary.AssetID,
		Timestamp: primary.Timestamp,
	}

	if complement != nil && complement.AssetID == primary.AssetID {
		complement = nil
	}

	if complement != nil {
		merged.HasComplement = true
		merged.ComplementID = complement.AssetID
		for _, lvl := range complement.Asks {
			if !validLevel(lvl) {
				continue
			}
			if p := Complement(lvl.Price); ValidPrice(p) {
				bids.add(p, lvl.Size, domain.OriginSynthetic)
			}
		}
		for _, lvl := range complement.Bids {
			if !validLevel(lvl) {
				continue
			}
			if p := Complement(lvl.Price); ValidPrice(p) {
				asks.add(p, lvl.Size, domain.OriginSynthetic)
			}
		}
		if complement.Timestamp.After(merged.Timestamp) {
			merged.Timestamp = complement.Timestamp
		}
	}

	if merged.Timestamp.IsZero() {
		merged.Timestamp = time.Now().UTC()
	}
	merged.Bids = bids.levels()
	merged.Asks = asks.levels()
	return merged
}
