package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/market"
)

// SimulationInfo heads a JSON decision file.
type SimulationInfo struct {
	Name        string `json:"name"`
	UUID        string `json:"uuid"`
	StockCode   string `json:"stock_code"`
	StockName   string `json:"stock_name"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Strategy    string `json:"strategy"`
	CreatedTime string `json:"created_time"`
}

// FileDecision is one decision as written to a JSON decision file.
type FileDecision struct {
	DecisionTime string           `json:"decision_time"`
	ExecutedAt   string           `json:"executed_at"`
	Action       string           `json:"action"`
	StockCode    string           `json:"stock_code"`
	Price        decimal.Decimal  `json:"price"`
	Quantity     int64            `json:"quantity"`
	Reason       string           `json:"reason"`
	StopLoss     *decimal.Decimal `json:"stop_loss"`
	TakeProfit   *decimal.Decimal `json:"take_profit"`
}

// DecisionFile is the document a JSONFile maintains.
type DecisionFile struct {
	SimulationInfo SimulationInfo `json:"simulation_info"`
	Decisions      []FileDecision `json:"decisions"`
}

// JSONFile keeps one run's executed decisions in a single JSON document,
// rewritten after every trade so the file is always complete.
type JSONFile struct {
	mu   sync.Mutex
	path string
	doc  DecisionFile
}

// NewJSONFile creates (or truncates) path and writes the header.
func NewJSONFile(path string, info SimulationInfo) (*JSONFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if info.CreatedTime == "" {
		info.CreatedTime = time.Now().In(market.Location).Format(market.DateTimeLayout)
	}
	j := &JSONFile{path: path, doc: DecisionFile{SimulationInfo: info, Decisions: []FileDecision{}}}
	if err := j.flush(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *JSONFile) Path() string { return j.path }

func (j *JSONFile) RecordRun(context.Context, RunRecord) error       { return nil }
func (j *JSONFile) RecordEquity(context.Context, EquitySnapshot) error { return nil }

func (j *JSONFile) RecordDecision(_ context.Context, d DecisionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	fd := FileDecision{
		DecisionTime: fmtTime(d.DecisionTime),
		ExecutedAt:   fmtTime(d.ExecutedAt),
		Action:       string(d.Action),
		StockCode:    d.StockCode,
		Price:        d.Price,
		Quantity:     d.Quantity,
		Reason:       d.Reason,
	}
	if d.StopLoss.Valid {
		v := d.StopLoss.Decimal
		fd.StopLoss = &v
	}
	if d.TakeProfit.Valid {
		v := d.TakeProfit.Decimal
		fd.TakeProfit = &v
	}
	j.doc.Decisions = append(j.doc.Decisions, fd)
	return j.flush()
}

func (j *JSONFile) Close() error { return nil }

// flush writes the document to a temp file and renames it into place.
func (j *JSONFile) flush() error {
	b, err := json.MarshalIndent(j.doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write decision file: %w", err)
	}
	return os.Rename(tmp, j.path)
}

// ReadDecisionFile loads a document written by JSONFile.
func ReadDecisionFile(path string) (DecisionFile, error) {
	var doc DecisionFile
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("decision file %s: %w", path, err)
	}
	return doc, nil
}
