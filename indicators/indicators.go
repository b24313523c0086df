// Package indicators provides technical analysis indicators over candles.
package indicators

import "github.com/rustyeddy/ashare/market"

// Indicator computes a single streaming value from candles.
// It is deterministic and safe to use in replay and backtests.
type Indicator interface {
	// Name returns a stable identifier like "MA(20)" or "ATR(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* candle and updates internal state.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, 0 until Ready.
	Value() float64
}

// Run feeds candles through ind and returns its final value and readiness.
func Run(ind Indicator, candles []market.Candle) (float64, bool) {
	ind.Reset()
	for _, c := range candles {
		ind.Update(c)
	}
	return ind.Value(), ind.Ready()
}
