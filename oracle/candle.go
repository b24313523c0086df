package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/market"
)

// DefaultLead is how far after the decision time the execution candle
// starts: a decision made at 10:00 executes at the open of the 10:15 candle.
const DefaultLead = 15 * time.Minute

// CandleSource looks up one stored candle. *candles.Store implements it.
type CandleSource interface {
	Candle(ctx context.Context, code string, p market.Period, at time.Time) (market.Candle, bool, error)
}

// CandleOracle answers price and fill questions from historical (or
// predicted) candles.
type CandleOracle struct {
	Source CandleSource
	Lead   time.Duration
}

func NewCandleOracle(src CandleSource) *CandleOracle {
	return &CandleOracle{Source: src, Lead: DefaultLead}
}

// ExecutionPrice is the open of the candle starting at at+Lead.
func (o *CandleOracle) ExecutionPrice(ctx context.Context, code string, p market.Period, at time.Time) PriceResult {
	return o.field(ctx, code, p, at.Add(o.Lead), func(c market.Candle) float64 { return c.Open })
}

// Fillable reports whether price lies within [low, high] of the candle
// starting at at.
func (o *CandleOracle) Fillable(ctx context.Context, code string, p market.Period, price decimal.Decimal, qty int64, action decision.Action, at time.Time) bool {
	c, ok, err := o.Source.Candle(ctx, code, p, at)
	if err != nil || !ok {
		return false
	}
	return c.Contains(price.InexactFloat64())
}

func (o *CandleOracle) DailyOpen(ctx context.Context, code string, day time.Time) PriceResult {
	return o.field(ctx, code, market.Daily, day, func(c market.Candle) float64 { return c.Open })
}

func (o *CandleOracle) DailyClose(ctx context.Context, code string, day time.Time) PriceResult {
	return o.field(ctx, code, market.Daily, day, func(c market.Candle) float64 { return c.Close })
}

func (o *CandleOracle) field(ctx context.Context, code string, p market.Period, at time.Time, pick func(market.Candle) float64) PriceResult {
	c, ok, err := o.Source.Candle(ctx, code, p, at)
	if err != nil {
		return Bad(err)
	}
	if !ok {
		return Missing()
	}
	v := pick(c)
	if v <= 0 {
		return Bad(fmt.Errorf("non-positive price %v at %s", v, at.Format(market.DateTimeLayout)))
	}
	return Price(decimal.NewFromFloat(v))
}

// MemorySource is an in-memory CandleSource, handy for tests and for
// candles produced by a predictor rather than read from the store.
type MemorySource struct {
	mu      sync.RWMutex
	candles map[memoryKey]market.Candle
}

type memoryKey struct {
	code   string
	period market.Period
	at     string
}

func NewMemorySource() *MemorySource {
	return &MemorySource{candles: make(map[memoryKey]market.Candle)}
}

func keyFor(code string, p market.Period, at time.Time) memoryKey {
	layout := market.DateTimeLayout
	if p == market.Daily {
		layout = market.DateLayout
	}
	return memoryKey{code: code, period: p, at: at.In(market.Location).Format(layout)}
}

// Add stores cs under code and p, replacing any candle with the same start.
func (m *MemorySource) Add(code string, p market.Period, cs ...market.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cs {
		m.candles[keyFor(code, p, c.Time)] = c
	}
}

func (m *MemorySource) Candle(_ context.Context, code string, p market.Period, at time.Time) (market.Candle, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.candles[keyFor(code, p, at)]
	return c, ok, nil
}
