package journal

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/market"
)

// FormatDecisionOrg renders a DecisionRecord as an Org-mode block. Facts go
// in a PROPERTIES drawer for search; the Review heading is left for notes.
func FormatDecisionOrg(d DecisionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s %d %s @ %s (%s)\n", strings.ToUpper(string(d.Action)), d.Quantity, d.StockCode, d.Price.StringFixed(2), shortID(d.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", d.ID)
	fmt.Fprintf(&b, ":RUN_ID: %s\n", d.RunID)
	fmt.Fprintf(&b, ":DECISION_TIME: %s\n", fmtTime(d.DecisionTime))
	fmt.Fprintf(&b, ":EXECUTED_AT: %s\n", fmtTime(d.ExecutedAt))
	fmt.Fprintf(&b, ":ACTION: %s\n", d.Action)
	fmt.Fprintf(&b, ":QUANTITY: %d\n", d.Quantity)
	fmt.Fprintf(&b, ":PRICE: %s\n", d.Price.StringFixed(3))
	if d.StopLoss.Valid {
		fmt.Fprintf(&b, ":STOP_LOSS: %s\n", d.StopLoss.Decimal.StringFixed(2))
	}
	if d.TakeProfit.Valid {
		fmt.Fprintf(&b, ":TAKE_PROFIT: %s\n", d.TakeProfit.Decimal.StringFixed(2))
	}
	b.WriteString(":END:\n")
	fmt.Fprintf(&b, "%s\n\n", d.Reason)
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatDecisionsOrg renders multiple decisions separated by blank lines.
func FormatDecisionsOrg(ds []DecisionRecord) string {
	var b strings.Builder
	for i, d := range ds {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatDecisionOrg(d))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}

type runOrgView struct {
	RunRecord
	Decisions []DecisionRecord
	Equity    []EquitySnapshot
	Body      string
}

var runOrgFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date":  func(t time.Time) string { return t.In(market.Location).Format(market.DateLayout) },
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			t = time.Now()
		}
		return t.In(market.Location).Format("2006-01-02 Mon 15:04")
	},
	"diff": func(a, b decimal.Decimal) string { return a.Sub(b).StringFixed(2) },
}

var runOrgTmpl = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(`* BACKTEST: {{.Strategy}} {{.StockName}} ({{.StockCode}})
:PROPERTIES:
:RUN_ID:       {{.RunID}}
:NAME:         {{.Name}}
:STRATEGY:     {{.Strategy}}
:STOCK:        {{.StockCode}}
:START_DATE:   {{date .Start}}
:END_DATE:     {{date .End}}
:INITIAL_CASH: {{money .InitialCash}}
:FINAL_VALUE:  {{money .FinalValue}}
:RETURN_PCT:   {{money .ReturnPct}}
:BENCH_PCT:    {{money .BenchmarkPct}}
:TRADES:       {{.Trades}}
:STATUS:       {{.Status}}
:CREATED:      [{{stamp .Created}}]
:END:

** Performance Summary
- Start price:     {{money .StartPrice}}
- End price:       {{money .EndPrice}}
- Buy and hold:    *{{money .BenchmarkPct}}%*
- Strategy:        *{{money .ReturnPct}}%*
- Excess return:   *{{diff .ReturnPct .BenchmarkPct}}%*
{{- if .Equity}}

** Daily Equity
| Date | Cash | Stock | Total |
|------+------+-------+-------|
{{- range .Equity}}
| {{date .Time}} | {{money .Cash}} | {{money .StockValue}} | {{money .TotalValue}} |
{{- end}}
{{- end}}
{{- if .Decisions}}

** Trades
{{.Body}}
{{- end}}
`))

// FormatRunOrg renders a run with its trades and daily equity.
func FormatRunOrg(r RunRecord, ds []DecisionRecord, eq []EquitySnapshot) (string, error) {
	var buf bytes.Buffer
	err := runOrgTmpl.Execute(&buf, runOrgView{
		RunRecord: r,
		Decisions: ds,
		Equity:    eq,
		Body:      strings.ReplaceAll(FormatDecisionsOrg(ds), "** ", "*** "),
	})
	return buf.String(), err
}

// ExportRunOrg loads everything about runID and returns the Org document.
func ExportRunOrg(ctx context.Context, rd Reader, runID string) (string, error) {
	r, err := rd.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	ds, err := rd.ListDecisions(ctx, runID)
	if err != nil {
		return "", err
	}
	eq, err := rd.ListEquity(ctx, runID)
	if err != nil {
		return "", err
	}
	return FormatRunOrg(r, ds, eq)
}
