package decision

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoJSON is returned by Parse when the text holds no JSON object.
var ErrNoJSON = errors.New("decision: no JSON object found")

const timeLayout = "2006-01-02 15:04:05"

type wireDecision struct {
	Datetime   string           `json:"datetime"`
	Action     string           `json:"action"`
	StockCode  string           `json:"stock_code"`
	Price      decimal.Decimal  `json:"price"`
	Quantity   float64          `json:"quantity"`
	Reason     string           `json:"reason"`
	StopLoss   *decimal.Decimal `json:"stop_loss"`
	TakeProfit *decimal.Decimal `json:"take_profit"`
}

// Parse extracts a Decision from free text such as a model reply. The JSON
// object is taken from the first '{' to the last '}', so surrounding prose
// or code fences are ignored. Datetime uses "YYYY-MM-DD HH:MM:SS" in loc.
func Parse(text string, loc *time.Location) (Decision, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return Decision{}, ErrNoJSON
	}

	var w wireDecision
	if err := json.Unmarshal([]byte(text[start:end+1]), &w); err != nil {
		return Decision{}, fmt.Errorf("decision: bad JSON: %w", err)
	}

	action, err := ParseAction(w.Action)
	if err != nil {
		return Decision{}, fmt.Errorf("decision: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}
	var at time.Time
	if strings.TrimSpace(w.Datetime) != "" {
		at, err = time.ParseInLocation(timeLayout, strings.TrimSpace(w.Datetime), loc)
		if err != nil {
			return Decision{}, fmt.Errorf("decision: bad datetime %q: %w", w.Datetime, err)
		}
	}

	if w.Quantity != math.Trunc(w.Quantity) {
		return Decision{}, fmt.Errorf("decision: quantity %v is not a whole number", w.Quantity)
	}

	d := Decision{
		Time:      at,
		Action:    action,
		StockCode: strings.TrimSpace(w.StockCode),
		Price:     w.Price,
		Quantity:  int64(w.Quantity),
		Reason:    w.Reason,
	}
	if w.StopLoss != nil {
		d.StopLoss = decimal.NewNullDecimal(*w.StopLoss)
	}
	if w.TakeProfit != nil {
		d.TakeProfit = decimal.NewNullDecimal(*w.TakeProfit)
	}
	return d, nil
}
