package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/decision"
)

// Position is a holding marked to a price.
type Position struct {
	Code          string
	Total         int64
	Available     int64
	CostBasis     decimal.Decimal
	Price         decimal.Decimal
	MarketValue   decimal.Decimal
	UnrealizedPL  decimal.Decimal
	UnrealizedPct decimal.Decimal
}

// Summary is a mark-to-market view of the account.
type Summary struct {
	Cash        decimal.Decimal
	StockValue  decimal.Decimal
	TotalValue  decimal.Decimal
	TotalAssets decimal.Decimal // cost-basis valuation
	Positions   []Position
}

// Summary marks every holding to prices. A holding without a price is
// marked at its cost basis.
func (a *Account) Summary(prices map[string]decimal.Decimal) Summary {
	s := Summary{Cash: a.cash, TotalAssets: a.totalAssets}
	for _, h := range a.Holdings() {
		price, ok := prices[h.Code]
		if !ok || !price.IsPositive() {
			price = h.CostBasis
		}
		qty := decimal.NewFromInt(h.Total)
		mv := price.Mul(qty)
		pl := mv.Sub(h.CostBasis.Mul(qty))
		pct := decimal.Zero
		if h.CostBasis.IsPositive() && h.Total > 0 {
			pct = price.Sub(h.CostBasis).Div(h.CostBasis).Mul(decimal.NewFromInt(100))
		}
		s.Positions = append(s.Positions, Position{
			Code:          h.Code,
			Total:         h.Total,
			Available:     h.Available,
			CostBasis:     h.CostBasis,
			Price:         price,
			MarketValue:   mv,
			UnrealizedPL:  pl,
			UnrealizedPct: pct,
		})
		s.StockValue = s.StockValue.Add(mv)
	}
	s.TotalValue = s.Cash.Add(s.StockValue)
	return s
}

// TotalValue is cash plus holdings marked to prices.
func (a *Account) TotalValue(prices map[string]decimal.Decimal) decimal.Decimal {
	return a.Summary(prices).TotalValue
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cash: %s CNY\n", s.Cash.StringFixed(2))
	fmt.Fprintf(&b, "stock value: %s CNY\n", s.StockValue.StringFixed(2))
	fmt.Fprintf(&b, "total value: %s CNY\n", s.TotalValue.StringFixed(2))
	if len(s.Positions) == 0 {
		b.WriteString("positions: none\n")
		return b.String()
	}
	b.WriteString("positions:\n")
	for _, p := range s.Positions {
		fmt.Fprintf(&b, "  %s: %d shares (%d sellable), cost %s, price %s, value %s, P/L %s (%s%%)\n",
			p.Code, p.Total, p.Available,
			p.CostBasis.StringFixed(3), p.Price.StringFixed(2),
			p.MarketValue.StringFixed(2), p.UnrealizedPL.StringFixed(2), p.UnrealizedPct.StringFixed(2))
	}
	return b.String()
}

// RecentDecisions returns up to n executed decisions for code, newest first.
// An empty code matches every stock.
func (a *Account) RecentDecisions(code string, n int) []decision.Decision {
	var out []decision.Decision
	for i := len(a.history) - 1; i >= 0 && len(out) < n; i-- {
		d := a.history[i]
		if code == "" || d.StockCode == code {
			out = append(out, d)
		}
	}
	return out
}

// RecentDecisionsSummary renders RecentDecisions one per line.
func (a *Account) RecentDecisionsSummary(code string, n int) string {
	recent := a.RecentDecisions(code, n)
	if len(recent) == 0 {
		return "no trades yet"
	}
	var b strings.Builder
	for _, d := range recent {
		fmt.Fprintf(&b, "%s %s %d @ %s (%s)\n",
			d.Time.Format("2006-01-02 15:04"), d.Action, d.Quantity, d.Price.StringFixed(2), d.Reason)
	}
	return strings.TrimRight(b.String(), "\n")
}
