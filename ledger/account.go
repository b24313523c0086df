// Package ledger implements a T+1 cash equity account under A-share rules:
// board-lot quantities, a fixed commission per side plus stamp duty, and
// shares bought today that only become sellable on the next trading day.
//
// Both sides' fees are charged when buying. The sell-side commission and
// stamp duty are prefunded into the cost basis, so a sell credits the full
// notional and cost basis alone decides realized profit.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/market"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be a positive multiple of 100")
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrWrongAction        = errors.New("decision action does not match operation")
	ErrInsufficientCash   = errors.New("insufficient cash")
	ErrNotHeld            = errors.New("stock not held")
	ErrInsufficientShares = errors.New("insufficient available shares")
)

// Fees is the per-trade cost model.
type Fees struct {
	FixedFee      decimal.Decimal // commission per side, CNY
	StampDutyRate decimal.Decimal // proportional tax on notional
}

// DefaultFees is 5 CNY per side and 0.05% stamp duty.
func DefaultFees() Fees {
	return Fees{
		FixedFee:      decimal.NewFromInt(5),
		StampDutyRate: decimal.RequireFromString("0.0005"),
	}
}

// BuyCost is the total cash a buy of qty shares at price consumes: notional,
// buy commission, and the prefunded sell commission plus stamp duty.
func (f Fees) BuyCost(price decimal.Decimal, qty int64) decimal.Decimal {
	notional := price.Mul(decimal.NewFromInt(qty))
	sellSide := f.FixedFee.Add(notional.Mul(f.StampDutyRate))
	return notional.Add(f.FixedFee).Add(sellSide)
}

// Holding is one stock position.
type Holding struct {
	Code      string
	Total     int64
	Available int64
	CostBasis decimal.Decimal // fees-inclusive average cost per share
}

// Valid checks 0 <= Available <= Total.
func (h Holding) Valid() bool {
	return h.Available >= 0 && h.Available <= h.Total
}

// Account is a single-owner T+1 account. It is not safe for concurrent use;
// each simulation run owns its own Account.
type Account struct {
	cash        decimal.Decimal
	holdings    map[string]*Holding
	totalAssets decimal.Decimal
	fees        Fees
	history     []decision.Decision
}

func NewAccount(initialCash decimal.Decimal, fees Fees) *Account {
	return &Account{
		cash:        initialCash,
		holdings:    make(map[string]*Holding),
		totalAssets: initialCash,
		fees:        fees,
	}
}

func (a *Account) Cash() decimal.Decimal        { return a.cash }
func (a *Account) Fees() Fees                   { return a.fees }
func (a *Account) TotalAssets() decimal.Decimal { return a.totalAssets }

// Holding returns a copy of the position in code.
func (a *Account) Holding(code string) (Holding, bool) {
	h, ok := a.holdings[code]
	if !ok {
		return Holding{}, false
	}
	return *h, true
}

// Holdings returns copies of all positions sorted by code.
func (a *Account) Holdings() []Holding {
	out := make([]Holding, 0, len(a.holdings))
	for _, h := range a.holdings {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// TotalQuantity is the number of shares held in code, sellable or not.
func (a *Account) TotalQuantity(code string) int64 {
	if h, ok := a.holdings[code]; ok {
		return h.Total
	}
	return 0
}

// AvailableQuantity is the number of shares in code that can be sold today.
func (a *Account) AvailableQuantity(code string) int64 {
	if h, ok := a.holdings[code]; ok {
		return h.Available
	}
	return 0
}

// BreakEvenPrice is the sell price at which a position in code neither gains
// nor loses. Because sell fees are prefunded it equals the cost basis.
func (a *Account) BreakEvenPrice(code string) decimal.Decimal {
	if h, ok := a.holdings[code]; ok {
		return h.CostBasis
	}
	return decimal.Zero
}

// History returns the executed decisions in execution order.
func (a *Account) History() []decision.Decision {
	out := make([]decision.Decision, len(a.history))
	copy(out, a.history)
	return out
}

// Buy executes a buy decision. New shares are locked until NextTradingDay.
// On error the account is unchanged.
func (a *Account) Buy(d decision.Decision) error {
	if d.Action != decision.Buy {
		return fmt.Errorf("buy %s: %w", d.StockCode, ErrWrongAction)
	}
	if !market.IsLot(d.Quantity) {
		return fmt.Errorf("buy %s %d: %w", d.StockCode, d.Quantity, ErrInvalidQuantity)
	}
	if !d.Price.IsPositive() {
		return fmt.Errorf("buy %s @ %s: %w", d.StockCode, d.Price, ErrInvalidPrice)
	}

	expense := a.fees.BuyCost(d.Price, d.Quantity)
	if a.cash.LessThan(expense) {
		return fmt.Errorf("buy %s: need %s, have %s: %w",
			d.StockCode, expense.StringFixed(2), a.cash.StringFixed(2), ErrInsufficientCash)
	}

	a.cash = a.cash.Sub(expense)

	h, ok := a.holdings[d.StockCode]
	if !ok {
		h = &Holding{Code: d.StockCode}
		a.holdings[d.StockCode] = h
	}
	oldCost := h.CostBasis.Mul(decimal.NewFromInt(h.Total))
	h.Total += d.Quantity
	h.CostBasis = oldCost.Add(expense).Div(decimal.NewFromInt(h.Total))

	a.updateTotalAssets()
	a.history = append(a.history, d)
	return nil
}

// Sell executes a sell decision against sellable shares. The cost basis is
// kept so remaining shares stay correctly costed. A position sold down to
// zero stays visible until NextTradingDay.
func (a *Account) Sell(d decision.Decision) error {
	if d.Action != decision.Sell {
		return fmt.Errorf("sell %s: %w", d.StockCode, ErrWrongAction)
	}
	if !market.IsLot(d.Quantity) {
		return fmt.Errorf("sell %s %d: %w", d.StockCode, d.Quantity, ErrInvalidQuantity)
	}
	if !d.Price.IsPositive() {
		return fmt.Errorf("sell %s @ %s: %w", d.StockCode, d.Price, ErrInvalidPrice)
	}

	h, ok := a.holdings[d.StockCode]
	if !ok {
		return fmt.Errorf("sell %s: %w", d.StockCode, ErrNotHeld)
	}
	if h.Available < d.Quantity {
		return fmt.Errorf("sell %s: available %d, held %d, want %d: %w",
			d.StockCode, h.Available, h.Total, d.Quantity, ErrInsufficientShares)
	}

	a.cash = a.cash.Add(d.Notional())
	h.Total -= d.Quantity
	h.Available -= d.Quantity

	a.updateTotalAssets()
	a.history = append(a.history, d)
	return nil
}

// NextTradingDay settles the day: every share becomes sellable and empty
// positions are dropped. Call it exactly once after each trading day.
func (a *Account) NextTradingDay() {
	for code, h := range a.holdings {
		if h.Total == 0 {
			delete(a.holdings, code)
			continue
		}
		h.Available = h.Total
	}
	a.updateTotalAssets()
}

// RealizedPL is what selling qty shares of code at price would realize
// against the cost basis.
func (a *Account) RealizedPL(code string, price decimal.Decimal, qty int64) decimal.Decimal {
	h, ok := a.holdings[code]
	if !ok {
		return decimal.Zero
	}
	q := decimal.NewFromInt(qty)
	return price.Mul(q).Sub(h.CostBasis.Mul(q))
}

func (a *Account) updateTotalAssets() {
	total := a.cash
	for _, h := range a.holdings {
		total = total.Add(h.CostBasis.Mul(decimal.NewFromInt(h.Total)))
	}
	a.totalAssets = total
}
