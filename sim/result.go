package sim

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/journal"
	"github.com/rustyeddy/ashare/ledger"
	"github.com/rustyeddy/ashare/market"
)

// Result is the outcome of one run. The embedded RunRecord is what the
// journal stores; the counters are only reported.
type Result struct {
	journal.RunRecord

	Days      int
	Decisions int
	Rejected  int
	Skipped   int

	MaxDrawdownPct decimal.Decimal
	Positions      []ledger.Holding
}

// BenchmarkValue is what the initial cash would be worth had it tracked
// the stock from the first open to the last close.
func (r Result) BenchmarkValue() decimal.Decimal {
	if !r.StartPrice.IsPositive() {
		return r.InitialCash
	}
	return r.InitialCash.Mul(r.EndPrice).Div(r.StartPrice)
}

// ExcessPct is the run's return minus the buy and hold return, in percent.
func (r Result) ExcessPct() decimal.Decimal {
	return r.ReturnPct().Sub(r.BenchmarkPct())
}

// PrintResult writes the end-of-run report.
func PrintResult(w io.Writer, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Simulation Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Name:          %s\n", r.Name)
	fmt.Fprintf(w, "Stock:         %s (%s)\n", r.StockName, r.StockCode)
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Status:        %s\n", r.Status)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(market.DateLayout))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(market.DateLayout))
	fmt.Fprintf(w, "Trading Days:  %d\n", r.Days)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Activity")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Decisions:     %d\n", r.Decisions)
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Rejected:      %d\n", r.Rejected)
	fmt.Fprintf(w, "Skipped:       %d\n", r.Skipped)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Buy and Hold")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Price:   %s\n", r.StartPrice.StringFixed(2))
	fmt.Fprintf(w, "End Price:     %s\n", r.EndPrice.StringFixed(2))
	fmt.Fprintf(w, "Value:         %s\n", r.BenchmarkValue().StringFixed(2))
	fmt.Fprintf(w, "Return:        %s%%\n", r.BenchmarkPct().StringFixed(2))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Initial Cash:  %s\n", r.InitialCash.StringFixed(2))
	fmt.Fprintf(w, "Final Value:   %s\n", r.FinalValue.StringFixed(2))
	fmt.Fprintf(w, "Return:        %s%%\n", r.ReturnPct().StringFixed(2))
	if r.MaxDrawdownPct.IsPositive() {
		fmt.Fprintf(w, "Max Drawdown:  %s%%\n", r.MaxDrawdownPct.StringFixed(2))
	}

	excess := r.ExcessPct()
	if excess.IsPositive() {
		fmt.Fprintf(w, "Outperformed buy and hold by %s%%\n", excess.StringFixed(2))
	} else {
		fmt.Fprintf(w, "Underperformed buy and hold by %s%%\n", excess.Abs().StringFixed(2))
	}

	if len(r.Positions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Open Positions")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, h := range r.Positions {
			fmt.Fprintf(w, "- %s %d shares @ %s\n", h.Code, h.Total, h.CostBasis.StringFixed(3))
		}
	}

	fmt.Fprintln(w)
}
