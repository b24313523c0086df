package strategies

import "github.com/shopspring/decimal"

// Ladder is the adaptive step state of a grid. A single signed level drives
// both sides: a buy crossing moves it up, widening the next buy step and
// narrowing the next sell step; a sell crossing moves it down. The level is
// clamped so that both derived indices stay inside their size tables.
//
// BuyCache and SellCache hold grid units a multi-level crossing did not
// trade, to be netted against the next opposite crossing.
type Ladder struct {
	BuySizes  []decimal.Decimal
	SellSizes []decimal.Decimal
	BuyCache  float64
	SellCache float64

	level int
}

// NewLadder builds a ladder from step ratios such as 0.02 for 2%. Both
// tables must be non-empty.
func NewLadder(buySizes, sellSizes []float64) *Ladder {
	return &Ladder{BuySizes: toDecimals(buySizes), SellSizes: toDecimals(sellSizes)}
}

func toDecimals(fs []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(fs))
	for i, f := range fs {
		out[i] = decimal.NewFromFloat(f)
	}
	return out
}

// Level is the signed ladder position. Positive after net buy crossings.
func (l *Ladder) Level() int { return l.level }

func (l *Ladder) BuyIndex() int  { return clamp(l.level, 0, len(l.BuySizes)-1) }
func (l *Ladder) SellIndex() int { return clamp(-l.level, 0, len(l.SellSizes)-1) }

func (l *Ladder) BuySize() decimal.Decimal  { return l.BuySizes[l.BuyIndex()] }
func (l *Ladder) SellSize() decimal.Decimal { return l.SellSizes[l.SellIndex()] }

// DownEdge is the price below which base has crossed the next buy level.
func (l *Ladder) DownEdge(base decimal.Decimal) decimal.Decimal {
	return base.Mul(decimal.NewFromInt(1).Sub(l.BuySize()))
}

// UpEdge is the price above which base has crossed the next sell level.
func (l *Ladder) UpEdge(base decimal.Decimal) decimal.Decimal {
	return base.Mul(decimal.NewFromInt(1).Add(l.SellSize()))
}

func (l *Ladder) move(delta int) {
	l.level = clamp(l.level+delta, -(len(l.SellSizes) - 1), len(l.BuySizes)-1)
}

// CrossDown walks the buy side for a price that is below DownEdge(base)
// and returns how many levels were crossed. Each crossing moves the level
// up and pushes the edge further down by the then-current buy step. When
// multi is false exactly one level is crossed.
func (l *Ladder) CrossDown(base, price decimal.Decimal, multi bool) int {
	edge := l.DownEdge(base)
	k := 0
	for {
		l.move(1)
		k++
		edge = edge.Sub(base.Mul(l.BuySize()))
		if !multi || price.GreaterThan(edge) {
			return k
		}
	}
}

// CrossUp mirrors CrossDown for the sell side.
func (l *Ladder) CrossUp(base, price decimal.Decimal, multi bool) int {
	edge := l.UpEdge(base)
	k := 0
	for {
		l.move(-1)
		k++
		edge = edge.Add(base.Mul(l.SellSize()))
		if !multi || price.LessThan(edge) {
			return k
		}
	}
}

// Netting is the result of reconciling k crossings against the opposite
// cache.
type Netting struct {
	// Forward is the net number of units in the crossing direction. Zero
	// when the cache absorbed the crossing.
	Forward float64
	// Reverse is the number of units to trade against the crossing
	// direction because the cache exceeded it.
	Reverse float64
}

// NetBuy reconciles k buy crossings against SellCache. Any excess beyond
// the one unit traded now is banked in BuyCache.
func (l *Ladder) NetBuy(k int) Netting {
	return net(float64(k), &l.SellCache, &l.BuyCache)
}

// NetSell reconciles k sell crossings against BuyCache.
func (l *Ladder) NetSell(k int) Netting {
	return net(float64(k), &l.BuyCache, &l.SellCache)
}

func net(k float64, opposite, same *float64) Netting {
	cached := *opposite
	*opposite = 0
	switch {
	case cached == k:
		return Netting{}
	case cached > k:
		return Netting{Reverse: cached - k}
	}
	forward := k - cached
	if forward > 1 {
		*same += forward - 1
	}
	return Netting{Forward: forward}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
