// Package journal records what a simulation run did: one RunRecord per
// run, one DecisionRecord per executed trade and one EquitySnapshot per
// trading day close.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/pkg/id"
)

// ErrNotFound is returned by readers for an unknown run.
var ErrNotFound = errors.New("journal: not found")

// Run status values.
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

type RunRecord struct {
	RunID     string
	Name      string
	StockCode string
	StockName string
	Strategy  string
	Start     time.Time
	End       time.Time

	InitialCash decimal.Decimal
	FinalValue  decimal.Decimal
	StartPrice  decimal.Decimal
	EndPrice    decimal.Decimal
	Trades      int

	Status  string
	Created time.Time
}

// ReturnPct is the run's return on initial cash, in percent.
func (r RunRecord) ReturnPct() decimal.Decimal {
	if !r.InitialCash.IsPositive() {
		return decimal.Zero
	}
	return r.FinalValue.Sub(r.InitialCash).Div(r.InitialCash).Mul(decimal.NewFromInt(100))
}

// BenchmarkPct is the buy-and-hold return over the same period, in percent.
func (r RunRecord) BenchmarkPct() decimal.Decimal {
	if !r.StartPrice.IsPositive() {
		return decimal.Zero
	}
	return r.EndPrice.Sub(r.StartPrice).Div(r.StartPrice).Mul(decimal.NewFromInt(100))
}

// DecisionRecord is one executed trade. DecisionTime is when the strategy
// decided; ExecutedAt is the start of the candle the order filled in.
type DecisionRecord struct {
	ID           string
	RunID        string
	DecisionTime time.Time
	ExecutedAt   time.Time
	Action       decision.Action
	StockCode    string
	Price        decimal.Decimal
	Quantity     int64
	Reason       string
	StopLoss     decimal.NullDecimal
	TakeProfit   decimal.NullDecimal
}

// NewDecisionRecord builds a record with a fresh ID.
func NewDecisionRecord(runID string, d decision.Decision, decidedAt, executedAt time.Time) DecisionRecord {
	return DecisionRecord{
		ID:           id.New(),
		RunID:        runID,
		DecisionTime: decidedAt,
		ExecutedAt:   executedAt,
		Action:       d.Action,
		StockCode:    d.StockCode,
		Price:        d.Price,
		Quantity:     d.Quantity,
		Reason:       d.Reason,
		StopLoss:     d.StopLoss,
		TakeProfit:   d.TakeProfit,
	}
}

// EquitySnapshot is the account marked to the daily close.
type EquitySnapshot struct {
	RunID      string
	Time       time.Time
	Cash       decimal.Decimal
	StockValue decimal.Decimal
	TotalValue decimal.Decimal
}

// Journal receives run output. RecordRun is called when a run starts and
// again when it ends; implementations treat it as an upsert.
type Journal interface {
	RecordRun(ctx context.Context, r RunRecord) error
	RecordDecision(ctx context.Context, d DecisionRecord) error
	RecordEquity(ctx context.Context, e EquitySnapshot) error
	Close() error
}

// Reader queries recorded runs.
type Reader interface {
	GetRun(ctx context.Context, runID string) (RunRecord, error)
	ListRuns(ctx context.Context) ([]RunRecord, error)
	ListDecisions(ctx context.Context, runID string) ([]DecisionRecord, error)
	ListEquity(ctx context.Context, runID string) ([]EquitySnapshot, error)
}

// Discard is a Journal that drops everything.
type Discard struct{}

func (Discard) RecordRun(context.Context, RunRecord) error           { return nil }
func (Discard) RecordDecision(context.Context, DecisionRecord) error { return nil }
func (Discard) RecordEquity(context.Context, EquitySnapshot) error   { return nil }
func (Discard) Close() error                                         { return nil }
