package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/ashare/decision"
)

const runColumns = `run_id, name, stock_code, stock_name, strategy, start_date, end_date,
	initial_cash, final_value, start_price, end_price, trades, status, created`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		r                                    RunRecord
		start, end, created                  string
		initial, final, startPrice, endPrice string
		err                                  error
	)
	if err := s.Scan(&r.RunID, &r.Name, &r.StockCode, &r.StockName, &r.Strategy, &start, &end,
		&initial, &final, &startPrice, &endPrice, &r.Trades, &r.Status, &created); err != nil {
		return RunRecord{}, err
	}
	if r.Start, err = parseDate(start); err != nil {
		return RunRecord{}, err
	}
	if r.End, err = parseDate(end); err != nil {
		return RunRecord{}, err
	}
	if r.Created, err = parseTime(created); err != nil {
		return RunRecord{}, err
	}
	if r.InitialCash, err = parseDecimal(initial); err != nil {
		return RunRecord{}, err
	}
	if r.FinalValue, err = parseDecimal(final); err != nil {
		return RunRecord{}, err
	}
	if r.StartPrice, err = parseDecimal(startPrice); err != nil {
		return RunRecord{}, err
	}
	if r.EndPrice, err = parseDecimal(endPrice); err != nil {
		return RunRecord{}, err
	}
	return r, nil
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	return r, err
}

// ListRuns returns every run, newest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListDecisions returns the executed trades of a run in decision order.
func (j *SQLite) ListDecisions(ctx context.Context, runID string) ([]DecisionRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, decision_time, executed_at, action, stock_code, price, quantity, reason, stop_loss, take_profit
		FROM decisions
		WHERE run_id = ?
		ORDER BY decision_time ASC, id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var (
			rec               DecisionRecord
			decided, executed string
			action, price     string
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &decided, &executed, &action, &rec.StockCode,
			&price, &rec.Quantity, &rec.Reason, &rec.StopLoss, &rec.TakeProfit); err != nil {
			return nil, err
		}
		if rec.DecisionTime, err = parseTime(decided); err != nil {
			return nil, err
		}
		if rec.ExecutedAt, err = parseTime(executed); err != nil {
			return nil, err
		}
		if rec.Price, err = parseDecimal(price); err != nil {
			return nil, err
		}
		rec.Action = decision.Action(action)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListEquity returns a run's daily snapshots, oldest first.
func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, cash, stock_value, total_value
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var (
			e                      EquitySnapshot
			ts, cash, stock, total string
		)
		if err := rows.Scan(&e.RunID, &ts, &cash, &stock, &total); err != nil {
			return nil, err
		}
		if e.Time, err = parseTime(ts); err != nil {
			return nil, err
		}
		if e.Cash, err = parseDecimal(cash); err != nil {
			return nil, err
		}
		if e.StockValue, err = parseDecimal(stock); err != nil {
			return nil, err
		}
		if e.TotalValue, err = parseDecimal(total); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
