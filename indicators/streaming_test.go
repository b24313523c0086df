package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ashare/market"
)

// fiveMinuteBars is the opening half hour of 600036 on 2025-03-03.
func fiveMinuteBars() []market.Candle {
	open := time.Date(2025, 3, 3, 9, 35, 0, 0, market.Location)
	hlc := [][3]float64{
		{38.20, 37.95, 38.10},
		{38.35, 38.05, 38.30},
		{38.40, 38.20, 38.25},
		{38.60, 38.25, 38.55},
		{38.70, 38.45, 38.50},
		{38.55, 38.30, 38.35},
	}
	out := make([]market.Candle, len(hlc))
	for i, v := range hlc {
		out[i] = market.Candle{
			Time:   open.Add(time.Duration(i) * 5 * time.Minute),
			Open:   v[2],
			High:   v[0],
			Low:    v[1],
			Close:  v[2],
			Volume: int64(1000 * (i + 1)),
		}
	}
	return out
}

func TestStreamingIndicators(t *testing.T) {
	bars := fiveMinuteBars()

	tests := []struct {
		name      string
		ind       Indicator
		fed       int
		wantReady bool
		want      float64
	}{
		{"MA(3) warming", NewMA(3), 2, false, 0},
		{"MA(3) first value", NewMA(3), 3, true, 38.21667},
		{"MA(3) rolls the window", NewMA(3), 4, true, 38.36667},
		{"EMA(3) warming", NewEMA(3), 2, false, 0},
		{"EMA(3) seeded with the SMA", NewEMA(3), 3, true, 38.21667},
		{"EMA(3) smooths", NewEMA(3), 4, true, 38.38333},
		{"ATR(3) needs a previous close", NewATR(3), 3, false, 0},
		{"ATR(3) first value", NewATR(3), 4, true, 0.28333},
		{"ATR(3) wilder smoothing", NewATR(3), 6, true, 0.26481},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, c := range bars[:tt.fed] {
				tt.ind.Update(c)
			}
			require.Equal(t, tt.wantReady, tt.ind.Ready())
			assert.InDelta(t, tt.want, tt.ind.Value(), 0.0001)
		})
	}
}

func TestStreamingReset(t *testing.T) {
	bars := fiveMinuteBars()

	for _, ind := range []Indicator{NewMA(2), NewEMA(2), NewATR(2)} {
		t.Run(ind.Name(), func(t *testing.T) {
			v, ok := Run(ind, bars)
			require.True(t, ok)
			assert.Positive(t, v)

			ind.Reset()
			assert.False(t, ind.Ready())
			assert.Zero(t, ind.Value())

			// a reset indicator replays to the same value
			again, _ := Run(ind, bars)
			assert.Equal(t, v, again)
		})
	}
}

func TestStreamingMatchesBatch(t *testing.T) {
	bars := fiveMinuteBars()

	ma, err := MA(bars, 4)
	require.NoError(t, err)
	got, _ := Run(NewMA(4), bars)
	assert.InDelta(t, ma, got, 1e-9)

	ema, err := EMA(bars, 4)
	require.NoError(t, err)
	got, _ = Run(NewEMA(4), bars)
	assert.InDelta(t, ema, got, 1e-9)

	atr, err := ATRFunc(bars, 4)
	require.NoError(t, err)
	got, _ = Run(NewATR(4), bars)
	assert.InDelta(t, atr, got, 1e-9)
}

func TestIndicatorNames(t *testing.T) {
	assert.Equal(t, "MA(5)", NewMA(5).Name())
	assert.Equal(t, "EMA(12)", NewEMA(12).Name())
	assert.Equal(t, "ATR(14)", NewATR(14).Name())
	assert.Equal(t, 15, NewATR(14).Warmup())
	assert.Equal(t, 12, NewEMA(12).Warmup())
}
