package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/market"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// parallel runs share one journal; sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(ctx context.Context, r RunRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(run_id, name, stock_code, stock_name, strategy, start_date, end_date,
		 initial_cash, final_value, start_price, end_price, trades, status, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Name, r.StockCode, r.StockName, r.Strategy,
		fmtDate(r.Start), fmtDate(r.End),
		r.InitialCash.String(), r.FinalValue.String(), r.StartPrice.String(), r.EndPrice.String(),
		r.Trades, r.Status, fmtTime(r.Created),
	)
	return err
}

func (j *SQLite) RecordDecision(ctx context.Context, d DecisionRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO decisions
		(id, run_id, decision_time, executed_at, action, stock_code, price, quantity, reason, stop_loss, take_profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RunID, fmtTime(d.DecisionTime), fmtTime(d.ExecutedAt),
		string(d.Action), d.StockCode, d.Price.String(), d.Quantity, d.Reason,
		d.StopLoss, d.TakeProfit,
	)
	return err
}

func (j *SQLite) RecordEquity(ctx context.Context, e EquitySnapshot) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO equity
		(run_id, time, cash, stock_value, total_value)
		VALUES (?, ?, ?, ?, ?)`,
		e.RunID, fmtTime(e.Time), e.Cash.String(), e.StockValue.String(), e.TotalValue.String(),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(market.Location).Format(market.DateTimeLayout)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(market.Location).Format(market.DateLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := market.ParseDateTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("journal: bad time %q: %w", s, err)
	}
	return t, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := market.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("journal: bad date %q: %w", s, err)
	}
	return t, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
