package journal

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"sync"
)

// CSVJournal writes executed trades and equity snapshots to two CSV files.
// Runs are not written; the run ID is a column of both files.
type CSVJournal struct {
	mu        sync.Mutex
	decisions *csv.Writer
	equity    *csv.Writer
	df, ef    *os.File
}

func NewCSV(decisionsPath, equityPath string) (*CSVJournal, error) {
	df, err := os.Create(decisionsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = df.Close()
		return nil, err
	}

	dw := csv.NewWriter(df)
	ew := csv.NewWriter(ef)

	if err := dw.Write([]string{"id", "run_id", "decision_time", "executed_at", "action", "stock_code", "price", "quantity", "reason", "stop_loss", "take_profit"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"run_id", "time", "cash", "stock_value", "total_value"}); err != nil {
		return nil, err
	}

	dw.Flush()
	if err := dw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{decisions: dw, equity: ew, df: df, ef: ef}, nil
}

func (j *CSVJournal) RecordRun(context.Context, RunRecord) error { return nil }

func (j *CSVJournal) RecordDecision(_ context.Context, d DecisionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.decisions.Write([]string{
		d.ID,
		d.RunID,
		fmtTime(d.DecisionTime),
		fmtTime(d.ExecutedAt),
		string(d.Action),
		d.StockCode,
		d.Price.String(),
		strconv.FormatInt(d.Quantity, 10),
		d.Reason,
		nullString(d.StopLoss.Valid, d.StopLoss.Decimal.String()),
		nullString(d.TakeProfit.Valid, d.TakeProfit.Decimal.String()),
	})
	if err != nil {
		return err
	}
	j.decisions.Flush()
	return j.decisions.Error()
}

func (j *CSVJournal) RecordEquity(_ context.Context, e EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.equity.Write([]string{
		e.RunID,
		fmtTime(e.Time),
		e.Cash.StringFixed(2),
		e.StockValue.StringFixed(2),
		e.TotalValue.StringFixed(2),
	})
	if err != nil {
		return err
	}

	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.decisions.Flush()
	if err := j.decisions.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.df.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func nullString(valid bool, s string) string {
	if !valid {
		return ""
	}
	return s
}
