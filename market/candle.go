package market

import "time"

// Candle represents OHLC (Open, High, Low, Close) candlestick data for one
// stock over one period. Time is the candle's start in market local time.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Amount float64
}

// Contains reports whether price lies within [Low, High].
func (c Candle) Contains(price float64) bool {
	return c.Low <= price && price <= c.High
}

// Valid reports whether the OHLC values are internally consistent.
func (c Candle) Valid() bool {
	if c.Time.IsZero() || c.Low <= 0 || c.High < c.Low {
		return false
	}
	if c.Open < c.Low || c.Open > c.High {
		return false
	}
	return c.Close >= c.Low && c.Close <= c.High
}
