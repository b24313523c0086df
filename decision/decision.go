// Package decision defines the trade decision a strategy produces at every
// decision point. A Decision is a value: strategies build it, the ledger and
// the journal only read it.
package decision

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
	None Action = "none"
)

// ParseAction normalises an action string. An empty string means none.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	case None, "", "hold":
		return None, nil
	}
	return "", fmt.Errorf("unknown action %q (want buy, sell or none)", s)
}

// Decision is what a strategy wants done at one decision point.
//
// Quantity is not validated here: a strategy may propose an ill-formed
// quantity and the ledger rejects it.
type Decision struct {
	Time       time.Time
	Action     Action
	StockCode  string
	Price      decimal.Decimal
	Quantity   int64
	Reason     string
	StopLoss   decimal.NullDecimal
	TakeProfit decimal.NullDecimal
}

// NewNone returns a no-op decision carrying only an explanation.
func NewNone(at time.Time, code, reason string) Decision {
	return Decision{Time: at, Action: None, StockCode: code, Reason: reason}
}

func NewBuy(at time.Time, code string, price decimal.Decimal, qty int64, reason string) Decision {
	return Decision{Time: at, Action: Buy, StockCode: code, Price: price, Quantity: qty, Reason: reason}
}

func NewSell(at time.Time, code string, price decimal.Decimal, qty int64, reason string) Decision {
	return Decision{Time: at, Action: Sell, StockCode: code, Price: price, Quantity: qty, Reason: reason}
}

// WithStops returns a copy of d with stop-loss and take-profit levels set.
func (d Decision) WithStops(stopLoss, takeProfit decimal.Decimal) Decision {
	d.StopLoss = decimal.NewNullDecimal(stopLoss)
	d.TakeProfit = decimal.NewNullDecimal(takeProfit)
	return d
}

// IsTrade reports whether d asks for a buy or a sell.
func (d Decision) IsTrade() bool {
	return d.Action == Buy || d.Action == Sell
}

// Notional is price times quantity.
func (d Decision) Notional() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(d.Quantity))
}

func (d Decision) String() string {
	if !d.IsTrade() {
		return fmt.Sprintf("%s none %s: %s", d.Time.Format("2006-01-02 15:04"), d.StockCode, d.Reason)
	}
	return fmt.Sprintf("%s %s %d %s @ %s: %s",
		d.Time.Format("2006-01-02 15:04"), d.Action, d.Quantity, d.StockCode, d.Price.StringFixed(2), d.Reason)
}
