package strategies

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/ledger"
	"github.com/rustyeddy/ashare/market"
	"github.com/rustyeddy/ashare/oracle"
)

type scriptedAsker struct {
	reply  string
	err    error
	prompt string
}

func (s *scriptedAsker) Ask(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

type fakeHistory struct {
	minuteTo time.Time
	dailyTo  time.Time
}

func (f *fakeHistory) Daily(_ context.Context, _ string, _, to time.Time) ([]market.Candle, error) {
	f.dailyTo = to
	return []market.Candle{{Time: to, Open: 10, High: 10.3, Low: 9.9, Close: 10.1, Volume: 5000}}, nil
}

func (f *fakeHistory) Minute(_ context.Context, _ string, _ market.Period, _, to time.Time) ([]market.Candle, error) {
	f.minuteTo = to
	return []market.Candle{{Time: to, Open: 10.1, High: 10.2, Low: 10, Close: 10.15, Volume: 800}}, nil
}

func TestStrategyByName(t *testing.T) {
	deps := Deps{Prices: fixedPrice{oracle.Price(dec("10"))}}

	for _, name := range []string{"grid-v1", "grid-v2", "GRID-V3", "hold", "buy-once", "ema-cross"} {
		t.Run(name, func(t *testing.T) {
			s, err := StrategyByName(name, deps)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Name())
		})
	}

	_, err := StrategyByName("martingale", deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")

	_, err = StrategyByName("advisor", deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Asker is required")

	_, err = StrategyByName("grid-v3", Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Prices is required")
}

func TestStrategyByNameReturnsFreshState(t *testing.T) {
	deps := Deps{Prices: fixedPrice{oracle.Price(dec("10"))}}
	a, err := StrategyByName("grid-v3", deps)
	require.NoError(t, err)
	b, err := StrategyByName("grid-v3", deps)
	require.NoError(t, err)

	acct := ledger.NewAccount(dec("100000"), ledger.DefaultFees())
	a.Decide(context.Background(), "", "600036", acct, noon)

	_, ok := b.(*Grid).Baseline()
	assert.False(t, ok, "runs must not share grid state")
}

func TestGridOptionsOverrideVariant(t *testing.T) {
	fees := GridFees{FixedFee: dec("6"), StampDutyRate: dec("0.001")}
	s, err := StrategyByName("grid-v3", Deps{
		Prices: fixedPrice{oracle.Price(dec("10"))},
		Grid:   GridOptions{Quantity: QuantityScaled, Fees: &fees},
	})
	require.NoError(t, err)
	cfg := s.(*Grid).Config()
	assert.Equal(t, QuantityScaled, cfg.Quantity)
	assert.True(t, cfg.Fees.FixedFee.Equal(dec("6")))
	assert.True(t, cfg.MultiLevel)
}

func TestBuyOnce(t *testing.T) {
	t.Parallel()

	s := &BuyOnce{Prices: fixedPrice{oracle.Price(dec("10"))}, Period: market.M15}
	acct := ledger.NewAccount(dec("10000"), ledger.DefaultFees())

	d := s.Decide(context.Background(), "", "600036", acct, noon)
	require.Equal(t, decision.Buy, d.Action)
	// 1000 shares would cost 10015
	assert.Equal(t, int64(900), d.Quantity)
	require.NoError(t, acct.Buy(d))

	d = s.Decide(context.Background(), "", "600036", acct, noon)
	assert.Equal(t, decision.None, d.Action)
}

func TestAdvisorDecides(t *testing.T) {
	t.Parallel()

	asker := &scriptedAsker{reply: "```json\n" + `{"datetime":"2025-03-03 10:00:00","action":"buy","stock_code":"600036","price":10.12,"quantity":300,"reason":"breakout","stop_loss":9.9,"take_profit":10.6}` + "\n```"}
	hist := &fakeHistory{}
	adv, err := NewAdvisor(Deps{Asker: asker, Candles: hist})
	require.NoError(t, err)

	acct := ledger.NewAccount(dec("100000"), ledger.DefaultFees())
	d := adv.Decide(context.Background(), "CMB", "600036", acct, noon)

	assert.Equal(t, decision.Buy, d.Action)
	assert.Equal(t, int64(300), d.Quantity)
	assert.True(t, d.TakeProfit.Valid)

	assert.Contains(t, asker.prompt, "CMB (code 600036)")
	assert.Contains(t, asker.prompt, "2025-03-03 10:00:00")
	assert.Contains(t, asker.prompt, "Commission is 5 CNY")
	assert.Contains(t, asker.prompt, "no trades yet")
	assert.Contains(t, asker.prompt, "Daily indicators: MA(5) n/a,")
	assert.True(t, hist.minuteTo.Equal(noon.Add(-15*time.Minute)), "minute history must stop before now")
	assert.True(t, hist.dailyTo.Before(market.StartOfDay(noon)), "daily history must stop before today")
}

func TestAdvisorFailuresBecomeNone(t *testing.T) {
	tests := []struct {
		name  string
		asker *scriptedAsker
		msg   string
	}{
		{"transport error", &scriptedAsker{err: errors.New("timeout")}, "request failed: timeout"},
		{"prose reply", &scriptedAsker{reply: "I would wait."}, "unusable reply"},
		{"other stock", &scriptedAsker{reply: `{"action":"sell","stock_code":"000001","quantity":100,"price":5}`}, "not 600036"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv, err := NewAdvisor(Deps{Asker: tt.asker, Candles: &fakeHistory{}})
			require.NoError(t, err)

			d := adv.Decide(context.Background(), "CMB", "600036", ledger.NewAccount(dec("1000"), ledger.DefaultFees()), noon)
			assert.Equal(t, decision.None, d.Action)
			assert.Contains(t, d.Reason, tt.msg)
			assert.True(t, d.Time.Equal(noon))
		})
	}
}

func TestAdvisorFillsMissingFields(t *testing.T) {
	adv, err := NewAdvisor(Deps{Asker: &scriptedAsker{reply: `{"action":"none","reason":"wait"}`}, Candles: &fakeHistory{}})
	require.NoError(t, err)

	d := adv.Decide(context.Background(), "CMB", "600036", ledger.NewAccount(dec("1000"), ledger.DefaultFees()), noon)
	assert.Equal(t, decision.None, d.Action)
	assert.Equal(t, "600036", d.StockCode)
	assert.True(t, d.Time.Equal(noon))
	assert.Equal(t, "wait", d.Reason)
}
