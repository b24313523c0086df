package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/ledger"
	"github.com/rustyeddy/ashare/market"
	"github.com/rustyeddy/ashare/oracle"
)

// seqPrice quotes the next price of a script on every request.
type seqPrice struct {
	prices []decimal.Decimal
	i      int
}

func (s *seqPrice) ExecutionPrice(context.Context, string, market.Period, time.Time) oracle.PriceResult {
	if s.i >= len(s.prices) {
		return oracle.Missing()
	}
	p := s.prices[s.i]
	s.i++
	return oracle.Price(p)
}

func seq(vals ...string) *seqPrice {
	s := &seqPrice{}
	for _, v := range vals {
		s.prices = append(s.prices, dec(v))
	}
	return s
}

func TestEMACrossEntersOnBullCrossAndStopsOut(t *testing.T) {
	prices := seq("10", "10", "10", "10", "9", "11", "10.5", "10.6")
	s, err := NewEMACross(EMACrossConfig{FastPeriod: 2, SlowPeriod: 4}, prices, market.M15)
	require.NoError(t, err)

	ctx := context.Background()
	acct := ledger.NewAccount(dec("100000"), ledger.DefaultFees())
	at := noon

	reasons := []string{"ema warming up", "ema warming up", "ema warming up", "waiting for a cross", "bear cross, nothing to sell"}
	for _, want := range reasons {
		d := s.Decide(ctx, "", "600036", acct, at)
		require.Equal(t, decision.None, d.Action)
		assert.Equal(t, want, d.Reason)
		at = at.Add(market.DecisionStep)
	}

	// 11 crosses the fast EMA over the slow one
	d := s.Decide(ctx, "", "600036", acct, at)
	require.Equal(t, decision.Buy, d.Action)
	// stop 10.67 risks 0.33 a share; 2% of 100000 buys 6000
	assert.Equal(t, int64(6000), d.Quantity)
	assert.True(t, d.StopLoss.Decimal.Equal(dec("10.67")))
	assert.True(t, d.TakeProfit.Decimal.Equal(dec("11.66")))
	require.NoError(t, acct.Buy(d))

	// below the stop but bought today
	d = s.Decide(ctx, "", "600036", acct, at.Add(market.DecisionStep))
	assert.Equal(t, decision.None, d.Action)

	acct.NextTradingDay()
	d = s.Decide(ctx, "", "600036", acct, at.Add(24*time.Hour))
	require.Equal(t, decision.Sell, d.Action)
	assert.Equal(t, int64(6000), d.Quantity)
	assert.Equal(t, "stop loss 10.67", d.Reason)
}

func TestEMACrossSellsOnBearCross(t *testing.T) {
	prices := seq("10", "10", "10", "10", "11", "9")
	s, err := NewEMACross(EMACrossConfig{FastPeriod: 2, SlowPeriod: 4, StopPct: 0.5}, prices, market.M15)
	require.NoError(t, err)

	ctx := context.Background()
	acct := ledger.NewAccount(dec("100000"), ledger.DefaultFees())

	var d decision.Decision
	for i := 0; i < 5; i++ {
		d = s.Decide(ctx, "", "600036", acct, noon)
	}
	require.Equal(t, decision.Buy, d.Action)
	require.NoError(t, acct.Buy(d))
	acct.NextTradingDay()

	d = s.Decide(ctx, "", "600036", acct, noon.Add(24*time.Hour))
	require.Equal(t, decision.Sell, d.Action)
	assert.Equal(t, "bear cross", d.Reason)
	assert.Equal(t, acct.AvailableQuantity("600036"), d.Quantity)
}

func TestEMACrossNoPrice(t *testing.T) {
	s, err := NewEMACross(EMACrossConfig{}, fixedPrice{oracle.Missing()}, market.M15)
	require.NoError(t, err)

	d := s.Decide(context.Background(), "", "600036", ledger.NewAccount(dec("1000"), ledger.DefaultFees()), noon)
	assert.Equal(t, decision.None, d.Action)
	assert.Contains(t, d.Reason, "no usable price")
}

func TestNewEMACrossValidates(t *testing.T) {
	p := fixedPrice{oracle.Price(dec("10"))}

	tests := []struct {
		name string
		cfg  EMACrossConfig
		px   oracle.PriceOracle
	}{
		{"no prices", EMACrossConfig{}, nil},
		{"fast not below slow", EMACrossConfig{FastPeriod: 20, SlowPeriod: 20}, p},
		{"stop at 100%", EMACrossConfig{StopPct: 1}, p},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEMACross(tt.cfg, tt.px, market.M15)
			assert.Error(t, err)
		})
	}

	s, err := NewEMACross(EMACrossConfig{}, p, market.M15)
	require.NoError(t, err)
	assert.Equal(t, EMACrossConfigDefaults(), s.Config())
}
