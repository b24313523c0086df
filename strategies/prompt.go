package strategies

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/indicators"
	"github.com/rustyeddy/ashare/market"
)

// CandleHistory is the market history a prompt is built from.
// *candles.Store implements it.
type CandleHistory interface {
	Daily(ctx context.Context, code string, from, to time.Time) ([]market.Candle, error)
	Minute(ctx context.Context, code string, p market.Period, from, to time.Time) ([]market.Candle, error)
}

// PromptOptions sizes the history included in an advisor prompt.
type PromptOptions struct {
	DailyDays       int
	MinuteDays      int
	RecentDecisions int
}

func (o PromptOptions) withDefaults() PromptOptions {
	if o.DailyDays <= 0 {
		o.DailyDays = 30
	}
	if o.MinuteDays <= 0 {
		o.MinuteDays = 3
	}
	if o.RecentDecisions <= 0 {
		o.RecentDecisions = 10
	}
	return o
}

type promptData struct {
	StockName    string
	StockCode    string
	Now          string
	FixedFee     string
	StampDutyPct string
	Daily        []market.Candle
	Indicators   string
	Minute       []market.Candle
	Account      string
	Recent       string
}

var promptTmpl = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"date":  func(t time.Time) string { return t.Format(market.DateLayout) },
	"stamp": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"px":    func(f float64) string { return fmt.Sprintf("%.2f", f) },
}).Parse(`You are a professional short-term trader on the China A-share market, skilled at intraday T trades. You are trading {{.StockName}} (code {{.StockCode}}). The current time is {{.Now}}.
The market settles T+1: shares bought today can only be sold from the next trading day. Commission is {{.FixedFee}} CNY per trade on each side and stamp duty is {{.StampDutyPct}}% of the notional. Orders must be whole lots of 100 shares.

Recent daily candles:
date open high low close volume
{{range .Daily}}{{date .Time}} {{px .Open}} {{px .High}} {{px .Low}} {{px .Close}} {{.Volume}}
{{else}}(none)
{{end}}Daily indicators: {{.Indicators}}

Recent 15-minute candles:
time open high low close volume
{{range .Minute}}{{stamp .Time}} {{px .Open}} {{px .High}} {{px .Low}} {{px .Close}} {{.Volume}}
{{else}}(none)
{{end}}
Your account:
{{.Account}}
Your recent trades:
{{.Recent}}

Based on the above, give your trading decision as a single JSON object with these fields:
datetime: decision time formatted as YYYY-MM-DD HH:MM:SS
action: buy, sell or none
stock_code: the stock code
price: buy or sell price, 0 when action is none
quantity: number of shares, a multiple of 100
reason: the reason, at most 50 words
stop_loss, take_profit: required when buying; for a reverse T give them as for a short position
Orders may fill one to two minutes late, so leave some margin in the price.
Output only the JSON, nothing else.
`))

// BuildPrompt renders the advisor prompt for code at now. Minute history
// stops at the last candle completed before now and daily history at the
// previous day, so the prompt never shows prices from the future.
func BuildPrompt(ctx context.Context, h CandleHistory, opts PromptOptions, stockName, code string, acct Account, now time.Time) (string, error) {
	opts = opts.withDefaults()
	now = now.In(market.Location)
	today := market.StartOfDay(now)

	daily, err := h.Daily(ctx, code, today.AddDate(0, 0, -opts.DailyDays), today.AddDate(0, 0, -1))
	if err != nil {
		return "", fmt.Errorf("daily candles: %w", err)
	}
	minute, err := h.Minute(ctx, code, market.M15,
		today.AddDate(0, 0, -opts.MinuteDays), now.Add(-market.M15.Duration()))
	if err != nil {
		return "", fmt.Errorf("15-minute candles: %w", err)
	}

	prices := map[string]decimal.Decimal{}
	switch {
	case len(minute) > 0:
		prices[code] = decimal.NewFromFloat(minute[len(minute)-1].Close)
	case len(daily) > 0:
		prices[code] = decimal.NewFromFloat(daily[len(daily)-1].Close)
	}

	fees := acct.Fees()
	data := promptData{
		StockName:    stockName,
		StockCode:    code,
		Now:          now.Format(market.DateTimeLayout),
		FixedFee:     fees.FixedFee.String(),
		StampDutyPct: fees.StampDutyRate.Mul(decimal.NewFromInt(100)).String(),
		Daily:        daily,
		Indicators:   indicators.Summarize(daily, indicators.DailySet()),
		Minute:       minute,
		Account:      acct.Summary(prices).String(),
		Recent:       acct.RecentDecisionsSummary(code, opts.RecentDecisions),
	}

	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
