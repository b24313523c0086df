package webapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/ashare/journal"
	"github.com/rustyeddy/ashare/market"
)

const (
	dailyLookbackDays = 100
	dailyMaxCandles   = 50
)

// CandleJSON is one candle as the chart front end expects it.
type CandleJSON struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type DailyResponse struct {
	StockCode string       `json:"stock_code"`
	StockName string       `json:"stock_name"`
	EndDate   string       `json:"end_date"`
	Data      []CandleJSON `json:"data"`
}

type Min5Response struct {
	StockCode  string       `json:"stock_code"`
	StockName  string       `json:"stock_name"`
	TradeDate  string       `json:"trade_date"`
	UpdateTime string       `json:"update_time,omitempty"`
	Data       []CandleJSON `json:"data"`
}

func toJSON(cs []market.Candle, layout string) []CandleJSON {
	out := make([]CandleJSON, len(cs))
	for i, c := range cs {
		out[i] = CandleJSON{
			Time:   c.Time.In(market.Location).Format(layout),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		}
	}
	return out
}

// endDate reads ?end_date=YYYY-MM-DD, defaulting to today.
func (s *Server) endDate(c *gin.Context) (time.Time, bool) {
	v := c.Query("end_date")
	if v == "" {
		return market.StartOfDay(s.now()), true
	}
	d, err := market.ParseDate(v)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_PARAM", fmt.Sprintf("end_date: %v", err))
		return time.Time{}, false
	}
	return d, true
}

// GET /api/stock/:code/daily returns the latest 50 daily candles of the 100
// days up to end_date.
func (s *Server) getDaily(c *gin.Context) {
	code := c.Param("code")
	end, ok := s.endDate(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	cs, err := s.candles.Daily(ctx, code, end.AddDate(0, 0, -dailyLookbackDays), end)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if len(cs) == 0 {
		writeError(c, http.StatusNotFound, "NO_DATA", "no daily candles found")
		return
	}
	if len(cs) > dailyMaxCandles {
		cs = cs[len(cs)-dailyMaxCandles:]
	}

	c.JSON(http.StatusOK, DailyResponse{
		StockCode: code,
		StockName: s.stockName(ctx, code),
		EndDate:   end.Format(market.DateLayout),
		Data:      toJSON(cs, market.DateLayout),
	})
}

// GET /api/stock/:code/min5 returns the 5 minute candles of the latest
// trading day on or before end_date.
func (s *Server) getMin5(c *gin.Context) {
	end, ok := s.endDate(c)
	if !ok {
		return
	}
	resp, status, err := s.min5(c.Request.Context(), c.Param("code"), end)
	if err != nil {
		code := "NO_DATA"
		if status == http.StatusInternalServerError {
			code = "STORE_ERROR"
		}
		writeError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) min5(ctx context.Context, code string, end time.Time) (Min5Response, int, error) {
	day, ok := s.cal.PreviousTradingDay(end)
	if !ok {
		return Min5Response{}, http.StatusNotFound, errors.New("no trading day found")
	}
	from := day.Add(9*time.Hour + 30*time.Minute)
	to := day.Add(15 * time.Hour)

	cs, err := s.candles.Minute(ctx, code, market.M5, from, to)
	if err != nil {
		return Min5Response{}, http.StatusInternalServerError, err
	}
	if len(cs) == 0 {
		return Min5Response{}, http.StatusNotFound, errors.New("no 5 minute candles found")
	}
	return Min5Response{
		StockCode: code,
		StockName: s.stockName(ctx, code),
		TradeDate: day.Format(market.DateLayout),
		Data:      toJSON(cs, market.DateTimeLayout),
	}, http.StatusOK, nil
}

func (s *Server) stockName(ctx context.Context, code string) string {
	name, err := s.candles.StockName(ctx, code)
	if err != nil || name == "" {
		return code
	}
	return name
}

// RunJSON is a recorded run with its derived returns.
type RunJSON struct {
	RunID        string  `json:"run_id"`
	Name         string  `json:"name"`
	StockCode    string  `json:"stock_code"`
	StockName    string  `json:"stock_name"`
	Strategy     string  `json:"strategy"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	InitialCash  string  `json:"initial_cash"`
	FinalValue   string  `json:"final_value"`
	ReturnPct    float64 `json:"return_pct"`
	BenchmarkPct float64 `json:"benchmark_pct"`
	Trades       int     `json:"trades"`
	Status       string  `json:"status"`
	Created      string  `json:"created"`
}

func runJSON(r journal.RunRecord) RunJSON {
	return RunJSON{
		RunID:        r.RunID,
		Name:         r.Name,
		StockCode:    r.StockCode,
		StockName:    r.StockName,
		Strategy:     r.Strategy,
		StartDate:    r.Start.In(market.Location).Format(market.DateLayout),
		EndDate:      r.End.In(market.Location).Format(market.DateLayout),
		InitialCash:  r.InitialCash.StringFixed(2),
		FinalValue:   r.FinalValue.StringFixed(2),
		ReturnPct:    r.ReturnPct().Round(2).InexactFloat64(),
		BenchmarkPct: r.BenchmarkPct().Round(2).InexactFloat64(),
		Trades:       r.Trades,
		Status:       r.Status,
		Created:      r.Created.In(market.Location).Format(market.DateTimeLayout),
	}
}

type DecisionJSON struct {
	ID           string  `json:"id"`
	DecisionTime string  `json:"decision_time"`
	ExecutedAt   string  `json:"executed_at"`
	Action       string  `json:"action"`
	StockCode    string  `json:"stock_code"`
	Price        string  `json:"price"`
	Quantity     int64   `json:"quantity"`
	Reason       string  `json:"reason"`
	StopLoss     *string `json:"stop_loss"`
	TakeProfit   *string `json:"take_profit"`
}

type EquityJSON struct {
	Time       string `json:"time"`
	Cash       string `json:"cash"`
	StockValue string `json:"stock_value"`
	TotalValue string `json:"total_value"`
}

func (s *Server) requireRuns(c *gin.Context) bool {
	if s.runs == nil {
		writeError(c, http.StatusServiceUnavailable, "NO_JOURNAL", "no run journal configured")
		return false
	}
	return true
}

func (s *Server) runError(c *gin.Context, err error) {
	if errors.Is(err, journal.ErrNotFound) {
		writeError(c, http.StatusNotFound, "RUN_NOT_FOUND", err.Error())
		return
	}
	writeError(c, http.StatusInternalServerError, "JOURNAL_ERROR", err.Error())
}

// GET /api/runs
func (s *Server) listRuns(c *gin.Context) {
	if !s.requireRuns(c) {
		return
	}
	runs, err := s.runs.ListRuns(c.Request.Context())
	if err != nil {
		s.runError(c, err)
		return
	}
	out := make([]RunJSON, len(runs))
	for i, r := range runs {
		out[i] = runJSON(r)
	}
	c.JSON(http.StatusOK, gin.H{"runs": out, "count": len(out)})
}

// GET /api/runs/:id
func (s *Server) getRun(c *gin.Context) {
	if !s.requireRuns(c) {
		return
	}
	r, err := s.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.runError(c, err)
		return
	}
	c.JSON(http.StatusOK, runJSON(r))
}

// GET /api/runs/:id/decisions
func (s *Server) listDecisions(c *gin.Context) {
	if !s.requireRuns(c) {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.runs.GetRun(ctx, id); err != nil {
		s.runError(c, err)
		return
	}
	ds, err := s.runs.ListDecisions(ctx, id)
	if err != nil {
		s.runError(c, err)
		return
	}

	out := make([]DecisionJSON, len(ds))
	for i, d := range ds {
		out[i] = DecisionJSON{
			ID:           d.ID,
			DecisionTime: d.DecisionTime.In(market.Location).Format(market.DateTimeLayout),
			ExecutedAt:   d.ExecutedAt.In(market.Location).Format(market.DateTimeLayout),
			Action:       string(d.Action),
			StockCode:    d.StockCode,
			Price:        d.Price.String(),
			Quantity:     d.Quantity,
			Reason:       d.Reason,
		}
		if d.StopLoss.Valid {
			v := d.StopLoss.Decimal.String()
			out[i].StopLoss = &v
		}
		if d.TakeProfit.Valid {
			v := d.TakeProfit.Decimal.String()
			out[i].TakeProfit = &v
		}
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "decisions": out, "count": len(out)})
}

// GET /api/runs/:id/equity
func (s *Server) listEquity(c *gin.Context) {
	if !s.requireRuns(c) {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.runs.GetRun(ctx, id); err != nil {
		s.runError(c, err)
		return
	}
	eq, err := s.runs.ListEquity(ctx, id)
	if err != nil {
		s.runError(c, err)
		return
	}

	out := make([]EquityJSON, len(eq))
	for i, e := range eq {
		out[i] = EquityJSON{
			Time:       e.Time.In(market.Location).Format(market.DateTimeLayout),
			Cash:       e.Cash.StringFixed(2),
			StockValue: e.StockValue.StringFixed(2),
			TotalValue: e.TotalValue.StringFixed(2),
		}
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "equity": out, "count": len(out)})
}

// GET /api/runs/:id/org returns the run as an Org-mode document.
func (s *Server) exportOrg(c *gin.Context) {
	if !s.requireRuns(c) {
		return
	}
	doc, err := journal.ExportRunOrg(c.Request.Context(), s.runs, c.Param("id"))
	if err != nil {
		s.runError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/org; charset=utf-8", []byte(doc))
}
