// Package sim replays trading days against a strategy, a T+1 ledger and a
// market oracle, and reports the result against buy and hold.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/journal"
	"github.com/rustyeddy/ashare/ledger"
	"github.com/rustyeddy/ashare/market"
	"github.com/rustyeddy/ashare/metrics"
	"github.com/rustyeddy/ashare/oracle"
	"github.com/rustyeddy/ashare/pkg/id"
	"github.com/rustyeddy/ashare/strategies"
)

// closeTime is the wall clock daily equity snapshots are stamped with.
const closeTime = 15 * time.Hour

// Runner drives one (stock, strategy) pair through [Start, End]. A Runner
// owns its Strategy and Account and must not be shared between runs.
type Runner struct {
	Strategy strategies.Strategy
	Account  *ledger.Account
	Oracle   oracle.Oracle
	Calendar *market.Calendar
	Journal  journal.Journal
	Log      logrus.FieldLogger

	RunID     string
	Name      string
	StockCode string
	StockName string
	Start     time.Time
	End       time.Time
	Period    market.Period

	stopped atomic.Bool
	prices  map[string]decimal.Decimal
}

// Stop asks the run to end after the current trading day.
func (r *Runner) Stop() { r.stopped.Store(true) }

// RunName is the human readable run name: stock, period, strategy and the
// creation stamp.
func RunName(stockName, code string, start, end time.Time, strategy string, created time.Time) string {
	return fmt.Sprintf("%s(%s)-%s-%s-%s-%s",
		stockName, code,
		start.In(market.Location).Format("2006-0102"),
		end.In(market.Location).Format("0102"),
		strategy,
		created.In(market.Location).Format("20060102150405"))
}

func (r *Runner) validate() error {
	if r.Strategy == nil {
		return fmt.Errorf("sim: Strategy is required")
	}
	if r.Account == nil {
		return fmt.Errorf("sim: Account is required")
	}
	if r.Oracle == nil {
		return fmt.Errorf("sim: Oracle is required")
	}
	if r.StockCode == "" {
		return fmt.Errorf("sim: StockCode is required")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("sim: Start and End are required")
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("sim: End %s is before Start %s",
			r.End.Format(market.DateLayout), r.Start.Format(market.DateLayout))
	}
	return nil
}

func (r *Runner) defaults() {
	if r.Journal == nil {
		r.Journal = journal.Discard{}
	}
	if r.Log == nil {
		r.Log = logrus.StandardLogger()
	}
	if r.Period == "" {
		r.Period = market.M15
	}
	if r.StockName == "" {
		r.StockName = r.StockCode
	}
	if r.RunID == "" {
		r.RunID = id.NewRunID()
	}
	if r.Name == "" {
		r.Name = RunName(r.StockName, r.StockCode, r.Start, r.End, r.Strategy.Name(), time.Now())
	}
	r.Log = r.Log.WithFields(logrus.Fields{
		"run":      r.RunID,
		"stock":    r.StockCode,
		"strategy": r.Strategy.Name(),
	})
	r.prices = make(map[string]decimal.Decimal)
}

// Run replays every trading day in [Start, End]. Each day visits the
// sixteen decision times in order, then unlocks T+1 shares and marks the
// account to the daily close. Journal failures for trades and snapshots are
// logged and do not stop the run; failing to record the run itself does.
//
// A stopped run returns its partial Result with status interrupted. A
// cancelled context does the same and also returns ctx.Err().
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if err := r.validate(); err != nil {
		return Result{}, err
	}
	r.defaults()

	days := r.Calendar.TradingDays(r.Start, r.End)
	res := Result{RunRecord: journal.RunRecord{
		RunID:       r.RunID,
		Name:        r.Name,
		StockCode:   r.StockCode,
		StockName:   r.StockName,
		Strategy:    r.Strategy.Name(),
		Start:       market.StartOfDay(r.Start),
		End:         market.StartOfDay(r.End),
		InitialCash: r.Account.Cash(),
		FinalValue:  r.Account.Cash(),
		Status:      journal.StatusRunning,
		Created:     time.Now(),
	}}
	if err := r.Journal.RecordRun(ctx, res.RunRecord); err != nil {
		return Result{}, fmt.Errorf("record run: %w", err)
	}

	r.Log.WithFields(logrus.Fields{
		"name": r.Name,
		"from": r.Start.Format(market.DateLayout),
		"to":   r.End.Format(market.DateLayout),
		"days": len(days),
		"cash": r.Account.Cash().StringFixed(2),
	}).Info("simulation started")

	var runErr error
	peak := res.InitialCash
	for _, day := range days {
		if r.stopped.Load() {
			res.Status = journal.StatusInterrupted
			break
		}
		if err := ctx.Err(); err != nil {
			res.Status = journal.StatusInterrupted
			runErr = err
			break
		}

		for _, at := range market.DecisionTimes(day) {
			r.step(ctx, at, &res)
		}
		r.Account.NextTradingDay()
		res.Days++

		total := r.closeDay(ctx, day)
		if total.GreaterThan(peak) {
			peak = total
		}
		if peak.IsPositive() {
			dd := peak.Sub(total).Div(peak).Mul(decimal.NewFromInt(100))
			if dd.GreaterThan(res.MaxDrawdownPct) {
				res.MaxDrawdownPct = dd
			}
		}
	}
	if res.Status == journal.StatusRunning {
		res.Status = journal.StatusCompleted
	}

	r.finish(ctx, days[:res.Days], &res)

	// The final record is written even when ctx was cancelled.
	if err := r.Journal.RecordRun(context.WithoutCancel(ctx), res.RunRecord); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("record run: %w", err))
	}
	metrics.RunFinished(res.Status)

	r.Log.WithFields(logrus.Fields{
		"status":    res.Status,
		"trades":    res.Trades,
		"final":     res.FinalValue.StringFixed(2),
		"return":    res.ReturnPct().StringFixed(2),
		"benchmark": res.BenchmarkPct().StringFixed(2),
	}).Info("simulation finished")

	return res, runErr
}

// step handles one decision time: price, skip rules, decision, fill check
// and execution, in that order.
func (r *Runner) step(ctx context.Context, at time.Time, res *Result) {
	log := r.Log.WithField("at", at.Format(market.DateTimeLayout))

	pr := r.Oracle.ExecutionPrice(ctx, r.StockCode, r.Period, at)
	if !pr.OK() {
		res.Skipped++
		metrics.Skipped("no_price")
		if pr.Status == oracle.Invalid {
			metrics.OracleError(pr.Status.String())
		}
		log.WithField("status", pr.Status).WithError(pr.Err).Debug("no price, decision skipped")
		return
	}
	price := pr.Price
	r.prices[r.StockCode] = price

	lot := price.Mul(decimal.NewFromInt(market.LotSize))
	if r.Account.AvailableQuantity(r.StockCode) == 0 && r.Account.Cash().LessThan(lot) {
		res.Skipped++
		metrics.Skipped("idle")
		log.WithField("price", price.StringFixed(2)).Debug("nothing to sell and cash short of one lot, decision skipped")
		return
	}

	d := r.Strategy.Decide(ctx, r.StockName, r.StockCode, r.Account, at)
	res.Decisions++
	metrics.Decision(r.Strategy.Name(), string(d.Action))

	if !d.IsTrade() {
		log.WithField("price", price.StringFixed(2)).Info(d.Reason)
		return
	}

	fillAt := at.Add(market.DecisionStep)
	if !r.Oracle.Fillable(ctx, d.StockCode, r.Period, d.Price, d.Quantity, d.Action, fillAt) {
		res.Rejected++
		metrics.Rejected("not_fillable")
		log.WithField("decision", d.String()).Info("order could not fill in the next candle")
		return
	}

	var err error
	switch d.Action {
	case decision.Buy:
		err = r.Account.Buy(d)
	case decision.Sell:
		err = r.Account.Sell(d)
	}
	if err != nil {
		res.Rejected++
		metrics.Rejected("ledger")
		log.WithField("decision", d.String()).WithError(err).Info("trade rejected")
		return
	}

	res.Trades++
	metrics.Trade(string(d.Action))
	if err := r.Journal.RecordDecision(ctx, journal.NewDecisionRecord(r.RunID, d, at, fillAt)); err != nil {
		log.WithError(err).Warn("record decision")
	}

	fields := logrus.Fields{
		"action": d.Action,
		"qty":    d.Quantity,
		"price":  d.Price.StringFixed(2),
		"cash":   r.Account.Cash().StringFixed(2),
	}
	if d.StopLoss.Valid {
		fields["stop_loss"] = d.StopLoss.Decimal.StringFixed(2)
	}
	if d.TakeProfit.Valid {
		fields["take_profit"] = d.TakeProfit.Decimal.StringFixed(2)
	}
	log.WithFields(fields).Info(d.Reason)
}

// closeDay marks the account to the daily close and records the snapshot.
// Without a close the last execution price is used.
func (r *Runner) closeDay(ctx context.Context, day time.Time) decimal.Decimal {
	if pr := r.Oracle.DailyClose(ctx, r.StockCode, day); pr.OK() {
		r.prices[r.StockCode] = pr.Price
	}

	s := r.Account.Summary(r.prices)
	snap := journal.EquitySnapshot{
		RunID:      r.RunID,
		Time:       market.StartOfDay(day).Add(closeTime),
		Cash:       s.Cash,
		StockValue: s.StockValue,
		TotalValue: s.TotalValue,
	}
	if err := r.Journal.RecordEquity(ctx, snap); err != nil {
		r.Log.WithError(err).Warn("record equity")
	}
	metrics.Equity(r.RunID, s.TotalValue.InexactFloat64())

	r.Log.WithFields(logrus.Fields{
		"day":   day.Format(market.DateLayout),
		"cash":  s.Cash.StringFixed(2),
		"stock": s.StockValue.StringFixed(2),
		"total": s.TotalValue.StringFixed(2),
	}).Info("trading day closed")
	r.Log.Debug(s.String())
	return s.TotalValue
}

// finish fills the end-of-run values: final account value and the buy and
// hold prices of the first and last trading day.
func (r *Runner) finish(ctx context.Context, days []time.Time, res *Result) {
	res.FinalValue = r.Account.TotalValue(r.prices)
	res.Positions = r.Account.Holdings()
	if len(days) == 0 {
		return
	}

	if pr := r.Oracle.DailyOpen(ctx, r.StockCode, days[0]); pr.OK() {
		res.StartPrice = pr.Price
	}
	if pr := r.Oracle.DailyClose(ctx, r.StockCode, days[len(days)-1]); pr.OK() {
		res.EndPrice = pr.Price
	}
}
