package strategies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/indicators"
	"github.com/rustyeddy/ashare/market"
	"github.com/rustyeddy/ashare/oracle"
)

// EMACross trades one stock long-only on a fast/slow EMA crossover of the
// execution prices it is shown.
//   - Buys only on a bull cross, sized so the stop risks RiskPct of equity
//   - Sells the available shares on a bear cross, or when the price reaches
//     the stop or the target of the open position
//   - Shares still locked by T+1 are held until the next trading day
type EMACross struct {
	cfg    EMACrossConfig
	prices oracle.PriceOracle
	period market.Period

	fast *indicators.ExponentialMA
	slow *indicators.ExponentialMA

	lastDiff     float64
	haveLastDiff bool

	stop   decimal.Decimal
	target decimal.Decimal
}

type EMACrossConfig struct {
	FastPeriod int     `json:"fast-period"`  // 5
	SlowPeriod int     `json:"slow-period"`  // 20
	RiskPct    float64 `json:"risk-percent"` // 0.02 (2%)
	StopPct    float64 `json:"stop-percent"` // stop distance below entry, 0.03
	RR         float64 `json:"risk-reward"`  // take-profit multiple of risk, e.g. 2.0
}

func (e EMACrossConfig) JSON() ([]byte, error) {
	return json.Marshal(e)
}

func EMACrossConfigDefaults() EMACrossConfig {
	return EMACrossConfig{
		FastPeriod: 5,
		SlowPeriod: 20,
		RiskPct:    0.02,
		StopPct:    0.03,
		RR:         2.0,
	}
}

// withDefaults fills zero fields from EMACrossConfigDefaults.
func (e EMACrossConfig) withDefaults() EMACrossConfig {
	d := EMACrossConfigDefaults()
	if e.FastPeriod <= 0 {
		e.FastPeriod = d.FastPeriod
	}
	if e.SlowPeriod <= 0 {
		e.SlowPeriod = d.SlowPeriod
	}
	if e.RiskPct <= 0 {
		e.RiskPct = d.RiskPct
	}
	if e.StopPct <= 0 {
		e.StopPct = d.StopPct
	}
	if e.RR <= 0 {
		e.RR = d.RR
	}
	return e
}

func NewEMACross(cfg EMACrossConfig, prices oracle.PriceOracle, period market.Period) (*EMACross, error) {
	if prices == nil {
		return nil, errors.New("ema-cross: Prices is required")
	}
	cfg = cfg.withDefaults()
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("ema-cross: fast period %d must be below slow period %d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.StopPct >= 1 {
		return nil, fmt.Errorf("ema-cross: stop percent %v must be below 1", cfg.StopPct)
	}
	return &EMACross{
		cfg:    cfg,
		prices: prices,
		period: period,
		fast:   indicators.NewEMA(cfg.FastPeriod),
		slow:   indicators.NewEMA(cfg.SlowPeriod),
	}, nil
}

func (s *EMACross) Name() string { return "ema-cross" }

func (s *EMACross) Config() EMACrossConfig { return s.cfg }

func (s *EMACross) Decide(ctx context.Context, _ string, code string, acct Account, at time.Time) decision.Decision {
	r := s.prices.ExecutionPrice(ctx, code, s.period, at)
	if !r.OK() {
		return decision.NewNone(at, code, fmt.Sprintf("no usable price (%s)", r.Status))
	}
	price := r.Price

	// Each execution price is treated as a one-price candle.
	px := price.InexactFloat64()
	c := market.Candle{Time: at, Open: px, High: px, Low: px, Close: px}
	s.fast.Update(c)
	s.slow.Update(c)

	if acct.TotalQuantity(code) == 0 {
		s.stop, s.target = decimal.Zero, decimal.Zero
	}
	if d, ok := s.exitAtLevels(code, acct, price, at); ok {
		return d
	}

	if !s.fast.Ready() || !s.slow.Ready() {
		return decision.NewNone(at, code, "ema warming up")
	}

	diff := s.fast.Value() - s.slow.Value()
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return decision.NewNone(at, code, "waiting for a cross")
	}

	// Bull cross: diff goes from <=0 to >0. Bear cross: from >=0 to <0.
	bullCross := diff > 0 && s.lastDiff <= 0
	bearCross := diff < 0 && s.lastDiff >= 0
	s.lastDiff = diff

	switch {
	case bullCross:
		return s.enter(code, acct, price, at)
	case bearCross:
		return s.exit(code, acct, price, at, "bear cross")
	default:
		return decision.NewNone(at, code, "no cross")
	}
}

// exitAtLevels sells when the open position's stop or target is reached.
func (s *EMACross) exitAtLevels(code string, acct Account, price decimal.Decimal, at time.Time) (decision.Decision, bool) {
	if s.stop.IsZero() || acct.AvailableQuantity(code) == 0 {
		return decision.Decision{}, false
	}
	switch {
	case price.LessThanOrEqual(s.stop):
		return s.exit(code, acct, price, at, "stop loss "+s.stop.StringFixed(2)), true
	case price.GreaterThanOrEqual(s.target):
		return s.exit(code, acct, price, at, "take profit "+s.target.StringFixed(2)), true
	}
	return decision.Decision{}, false
}

func (s *EMACross) enter(code string, acct Account, price decimal.Decimal, at time.Time) decision.Decision {
	if acct.TotalQuantity(code) > 0 {
		return decision.NewNone(at, code, "bull cross, position already open")
	}

	stop := price.Mul(decimal.NewFromFloat(1 - s.cfg.StopPct)).Round(2)
	risk := price.Sub(stop)
	if !risk.IsPositive() {
		return decision.NewNone(at, code, "bull cross, stop distance rounds to zero")
	}
	target := price.Add(risk.Mul(decimal.NewFromFloat(s.cfg.RR))).Round(2)

	equity := acct.Summary(map[string]decimal.Decimal{code: price}).TotalValue
	budget := equity.Mul(decimal.NewFromFloat(s.cfg.RiskPct))
	qty := market.FloorLot(budget.Div(risk).IntPart())

	fees := acct.Fees()
	for qty > 0 && fees.BuyCost(price, qty).GreaterThan(acct.Cash()) {
		qty -= market.LotSize
	}
	if qty <= 0 {
		return decision.NewNone(at, code, "bull cross, cash is short of one lot")
	}

	s.stop, s.target = stop, target
	return decision.NewBuy(at, code, price, qty,
		fmt.Sprintf("bull cross EMA(%d) over EMA(%d)", s.cfg.FastPeriod, s.cfg.SlowPeriod)).
		WithStops(stop, target)
}

func (s *EMACross) exit(code string, acct Account, price decimal.Decimal, at time.Time, why string) decision.Decision {
	if acct.TotalQuantity(code) == 0 {
		return decision.NewNone(at, code, why+", nothing to sell")
	}
	qty := acct.AvailableQuantity(code)
	if qty == 0 {
		return decision.NewNone(at, code, why+", shares locked until the next trading day")
	}
	return decision.NewSell(at, code, price, qty, why)
}
