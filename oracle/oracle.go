// Package oracle answers the simulation's market questions: the price a
// decision executes at, whether an order at that price could have filled,
// and the daily prices used for the buy-and-hold benchmark.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/market"
)

// Status says whether a PriceResult carries a usable price.
type Status int

const (
	OK Status = iota
	NoData
	Invalid
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case NoData:
		return "no data"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// PriceResult is a price lookup outcome. Price is only meaningful when
// Status is OK.
type PriceResult struct {
	Status Status
	Price  decimal.Decimal
	Err    error
}

func (r PriceResult) OK() bool { return r.Status == OK }

func Price(p decimal.Decimal) PriceResult { return PriceResult{Status: OK, Price: p} }

func Missing() PriceResult { return PriceResult{Status: NoData} }

func Bad(err error) PriceResult { return PriceResult{Status: Invalid, Err: err} }

// PriceOracle returns the price a decision taken at at executes at.
type PriceOracle interface {
	ExecutionPrice(ctx context.Context, code string, p market.Period, at time.Time) PriceResult
}

// FeasibilityOracle decides whether an order could have filled at price
// during the candle starting at at.
type FeasibilityOracle interface {
	Fillable(ctx context.Context, code string, p market.Period, price decimal.Decimal, qty int64, action decision.Action, at time.Time) bool
}

// BenchmarkOracle gives daily open and close for buy-and-hold comparison.
type BenchmarkOracle interface {
	DailyOpen(ctx context.Context, code string, day time.Time) PriceResult
	DailyClose(ctx context.Context, code string, day time.Time) PriceResult
}

// Oracle is everything the simulation driver asks about the market.
type Oracle interface {
	PriceOracle
	FeasibilityOracle
	BenchmarkOracle
}
