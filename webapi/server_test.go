package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ashare/candles"
	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/journal"
	"github.com/rustyeddy/ashare/market"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func day(s string) time.Time {
	t, err := market.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	store   *candles.Store
	journal *journal.SQLite
	server  *Server
}

func newFixture(t *testing.T, withRuns bool) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := candles.Open(filepath.Join(dir, "candles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.SaveStock(ctx, "600036", "招商银行"))

	// 60 weekdays of daily candles ending 2025-03-07
	var daily []market.Candle
	for d := day("2024-12-16"); !d.After(day("2025-03-07")); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		daily = append(daily, market.Candle{Time: d, Open: 10, High: 10.5, Low: 9.5, Close: 10.2, Volume: 1000})
	}
	_, err = store.SaveDaily(ctx, "600036", daily)
	require.NoError(t, err)

	var min5 []market.Candle
	for _, d := range []time.Time{day("2025-03-06"), day("2025-03-07")} {
		for i := 0; i < 4; i++ {
			at := d.Add(9*time.Hour + 30*time.Minute + time.Duration(i)*5*time.Minute)
			min5 = append(min5, market.Candle{Time: at, Open: 10, High: 10.1, Low: 9.9, Close: 10.05, Volume: 100})
		}
	}
	_, err = store.SaveMinute(ctx, "600036", market.M5, min5)
	require.NoError(t, err)

	f := &fixture{store: store}
	opts := Options{
		Candles:      store,
		PushInterval: 20 * time.Millisecond,
		Now:          func() time.Time { return day("2025-03-08").Add(12 * time.Hour) },
	}
	if withRuns {
		j, err := journal.NewSQLite(filepath.Join(dir, "journal.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = j.Close() })
		f.journal = j
		opts.Runs = j
	}
	f.server, err = NewServer(opts)
	require.NoError(t, err)
	return f
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestNewServerRequiresCandles(t *testing.T) {
	_, err := NewServer(Options{})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)
	w := get(t, f.server.Handler(), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDailyReturnsLatestFifty(t *testing.T) {
	f := newFixture(t, false)
	w := get(t, f.server.Handler(), "/api/stock/600036/daily?end_date=2025-03-07")
	require.Equal(t, http.StatusOK, w.Code)

	var resp DailyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "600036", resp.StockCode)
	assert.Equal(t, "招商银行", resp.StockName)
	assert.Equal(t, "2025-03-07", resp.EndDate)
	require.Len(t, resp.Data, dailyMaxCandles)
	assert.Equal(t, "2025-03-07", resp.Data[len(resp.Data)-1].Time)
	assert.InDelta(t, 10.2, resp.Data[0].Close, 1e-9)
}

func TestDailyErrors(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"bad date", "/api/stock/600036/daily?end_date=03/07/2025", http.StatusBadRequest, "INVALID_PARAM"},
		{"unknown stock", "/api/stock/000001/daily?end_date=2025-03-07", http.StatusNotFound, "NO_DATA"},
		{"before data", "/api/stock/600036/daily?end_date=2024-01-01", http.StatusNotFound, "NO_DATA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, f.server.Handler(), tt.path)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestMin5UsesPreviousTradingDay(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name    string
		path    string
		tradeOn string
	}{
		{"weekday", "/api/stock/600036/min5?end_date=2025-03-06", "2025-03-06"},
		{"saturday falls back to friday", "/api/stock/600036/min5?end_date=2025-03-08", "2025-03-07"},
		{"default end date is today", "/api/stock/600036/min5", "2025-03-07"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, f.server.Handler(), tt.path)
			require.Equal(t, http.StatusOK, w.Code)

			var resp Min5Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.tradeOn, resp.TradeDate)
			require.Len(t, resp.Data, 4)
			assert.Equal(t, tt.tradeOn+" 09:30:00", resp.Data[0].Time)
		})
	}
}

func TestMin5NoData(t *testing.T) {
	f := newFixture(t, false)
	w := get(t, f.server.Handler(), "/api/stock/600036/min5?end_date=2025-03-05")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_DATA", decodeError(t, w).Code)
}

func TestRunsWithoutJournal(t *testing.T) {
	f := newFixture(t, false)
	w := get(t, f.server.Handler(), "/api/runs")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NO_JOURNAL", decodeError(t, w).Code)
}

func recordRun(t *testing.T, j *journal.SQLite) {
	t.Helper()
	ctx := context.Background()
	dec := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	require.NoError(t, j.RecordRun(ctx, journal.RunRecord{
		RunID:       "run-1",
		Name:        "招商银行(600036)-2025-0303-0307-grid-v3",
		StockCode:   "600036",
		StockName:   "招商银行",
		Strategy:    "grid-v3",
		Start:       day("2025-03-03"),
		End:         day("2025-03-07"),
		InitialCash: dec("100000"),
		FinalValue:  dec("101000"),
		StartPrice:  dec("10"),
		EndPrice:    dec("10.5"),
		Trades:      1,
		Status:      journal.StatusCompleted,
		Created:     day("2025-04-01"),
	}))

	at := day("2025-03-03").Add(10 * time.Hour)
	d := decision.NewBuy(at, "600036", dec("10.05"), 500, "grid buy").WithStops(dec("9.8"), dec("10.6"))
	require.NoError(t, j.RecordDecision(ctx, journal.NewDecisionRecord("run-1", d, at, at.Add(15*time.Minute))))
	require.NoError(t, j.RecordEquity(ctx, journal.EquitySnapshot{
		RunID:      "run-1",
		Time:       day("2025-03-03").Add(15 * time.Hour),
		Cash:       dec("94970"),
		StockValue: dec("5100"),
		TotalValue: dec("100070"),
	}))
}

func TestRunRoutes(t *testing.T) {
	f := newFixture(t, true)
	recordRun(t, f.journal)
	h := f.server.Handler()

	t.Run("list", func(t *testing.T) {
		w := get(t, h, "/api/runs")
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Runs  []RunJSON `json:"runs"`
			Count int       `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "run-1", resp.Runs[0].RunID)
		assert.InDelta(t, 1.0, resp.Runs[0].ReturnPct, 1e-9)
		assert.InDelta(t, 5.0, resp.Runs[0].BenchmarkPct, 1e-9)
	})

	t.Run("get", func(t *testing.T) {
		w := get(t, h, "/api/runs/run-1")
		require.Equal(t, http.StatusOK, w.Code)
		var r RunJSON
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
		assert.Equal(t, "grid-v3", r.Strategy)
		assert.Equal(t, "2025-03-03", r.StartDate)
		assert.Equal(t, "101000.00", r.FinalValue)
		assert.Equal(t, journal.StatusCompleted, r.Status)
	})

	t.Run("decisions", func(t *testing.T) {
		w := get(t, h, "/api/runs/run-1/decisions")
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Decisions []DecisionJSON `json:"decisions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Decisions, 1)
		got := resp.Decisions[0]
		assert.Equal(t, "buy", got.Action)
		assert.Equal(t, int64(500), got.Quantity)
		assert.Equal(t, "2025-03-03 10:15:00", got.ExecutedAt)
		require.NotNil(t, got.StopLoss)
		assert.Equal(t, "9.8", *got.StopLoss)
	})

	t.Run("equity", func(t *testing.T) {
		w := get(t, h, "/api/runs/run-1/equity")
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Equity []EquityJSON `json:"equity"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Equity, 1)
		assert.Equal(t, "100070.00", resp.Equity[0].TotalValue)
	})

	t.Run("org", func(t *testing.T) {
		w := get(t, h, "/api/runs/run-1/org")
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/org"))
		assert.Contains(t, w.Body.String(), "* BACKTEST: grid-v3")
	})

	for _, path := range []string{"/api/runs/nope", "/api/runs/nope/decisions", "/api/runs/nope/equity", "/api/runs/nope/org"} {
		t.Run("missing "+path, func(t *testing.T) {
			w := get(t, h, path)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "RUN_NOT_FOUND", decodeError(t, w).Code)
		})
	}
}

func TestNoRoute(t *testing.T) {
	f := newFixture(t, false)
	w := get(t, f.server.Handler(), "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, false)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, false)
	w := get(t, f.server.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestStreamSendsInitialThenUpdates(t *testing.T) {
	f := newFixture(t, false)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/600036"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first StreamMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "initial", first.Type)
	require.NotNil(t, first.Data)
	assert.Equal(t, "2025-03-07", first.Data.TradeDate)
	assert.Equal(t, "2025-03-08 12:00:00", first.Data.UpdateTime)
	assert.Len(t, first.Data.Data, 4)

	var next StreamMessage
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "update", next.Type)
	require.NotNil(t, next.Data)
}

func TestStreamReportsMissingData(t *testing.T) {
	f := newFixture(t, false)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/000001"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "initial", msg.Type)
	assert.Nil(t, msg.Data)
	assert.NotEmpty(t, msg.Error)
}
