package decision

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cst = time.FixedZone("CST", 8*3600)

func TestParse(t *testing.T) {
	t.Parallel()

	reply := "Here is my call:\n```json\n" + `{
  "datetime": "2025-03-03 10:15:00",
  "action": "buy",
  "stock_code": "002170",
  "price": 7.85,
  "quantity": 500,
  "reason": "pullback to support",
  "stop_loss": 7.60,
  "take_profit": 8.20
}` + "\n```\nGood luck."

	d, err := Parse(reply, cst)
	require.NoError(t, err)

	assert.Equal(t, Buy, d.Action)
	assert.Equal(t, "002170", d.StockCode)
	assert.True(t, d.Price.Equal(decimal.RequireFromString("7.85")))
	assert.Equal(t, int64(500), d.Quantity)
	assert.Equal(t, "pullback to support", d.Reason)
	assert.True(t, d.Time.Equal(time.Date(2025, 3, 3, 10, 15, 0, 0, cst)))
	require.True(t, d.StopLoss.Valid)
	assert.True(t, d.StopLoss.Decimal.Equal(decimal.RequireFromString("7.6")))
	require.True(t, d.TakeProfit.Valid)
}

func TestParseNoneWithNulls(t *testing.T) {
	t.Parallel()

	d, err := Parse(`{"datetime":"2025-03-03 10:15:00","action":"none","stock_code":"002170","price":0,"quantity":0,"reason":"wait","stop_loss":null,"take_profit":null}`, cst)
	require.NoError(t, err)
	assert.Equal(t, None, d.Action)
	assert.False(t, d.IsTrade())
	assert.False(t, d.StopLoss.Valid)
	assert.False(t, d.TakeProfit.Valid)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		msg  string
	}{
		{"no json", "I cannot decide today.", "no JSON object"},
		{"broken json", `{"action": "buy",}`, "bad JSON"},
		{"bad action", `{"action": "short"}`, "unknown action"},
		{"bad datetime", `{"action": "buy", "datetime": "03/03/2025"}`, "bad datetime"},
		{"fractional quantity", `{"action": "buy", "quantity": 150.5}`, "whole number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in, cst)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestConstructors(t *testing.T) {
	at := time.Date(2025, 3, 3, 9, 30, 0, 0, cst)
	price := decimal.RequireFromString("10.00")

	b := NewBuy(at, "600036", price, 5000, "half position")
	assert.True(t, b.IsTrade())
	assert.True(t, b.Notional().Equal(decimal.NewFromInt(50000)))

	withStops := b.WithStops(decimal.RequireFromString("9.5"), decimal.RequireFromString("11"))
	assert.True(t, withStops.StopLoss.Valid)
	assert.False(t, b.StopLoss.Valid, "WithStops must not modify the receiver")

	n := NewNone(at, "600036", "inside grid")
	assert.Equal(t, None, n.Action)
	assert.True(t, n.Price.IsZero())
	assert.Contains(t, n.String(), "none")
}
