package strategies

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/market"
	"github.com/rustyeddy/ashare/oracle"
)

// QuantityMode decides how many shares a multi-level crossing trades.
type QuantityMode string

const (
	// QuantityBaseline trades one grid volume per call and banks the rest.
	QuantityBaseline QuantityMode = "baseline"
	// QuantityScaled trades the grid volume times the net crossings,
	// rounded down to whole lots.
	QuantityScaled QuantityMode = "scaled"
)

// GridFees is the cost model the grid uses to lift its baseline after a
// buy. It is separate from the ledger fees: FixedFee covers both sides of a
// round trip.
type GridFees struct {
	FixedFee      decimal.Decimal
	StampDutyRate decimal.Decimal
}

func DefaultGridFees() GridFees {
	return GridFees{
		FixedFee:      decimal.NewFromInt(10),
		StampDutyRate: decimal.RequireFromString("0.0005"),
	}
}

// GridConfig parameterises the grid engine. The v1, v2 and v3 variants are
// instances of it.
type GridConfig struct {
	Name       string
	BuySizes   []float64
	SellSizes  []float64
	MultiLevel bool
	Quantity   QuantityMode
	Fees       GridFees
}

func (c GridConfig) Validate() error {
	if c.Name == "" {
		return errors.New("grid: Name is required")
	}
	if len(c.BuySizes) == 0 || len(c.SellSizes) == 0 {
		return fmt.Errorf("grid %s: buy and sell sizes are required", c.Name)
	}
	for _, s := range append(append([]float64{}, c.BuySizes...), c.SellSizes...) {
		if s <= 0 || s >= 1 {
			return fmt.Errorf("grid %s: step %v must be in (0, 1)", c.Name, s)
		}
	}
	switch c.Quantity {
	case QuantityBaseline, QuantityScaled:
	default:
		return fmt.Errorf("grid %s: unknown quantity mode %q", c.Name, c.Quantity)
	}
	if c.Fees.FixedFee.IsNegative() || c.Fees.StampDutyRate.IsNegative() {
		return fmt.Errorf("grid %s: fees must not be negative", c.Name)
	}
	return nil
}

// GridOptions overrides variant defaults from configuration. Zero fields
// keep the variant's value.
type GridOptions struct {
	Quantity QuantityMode
	Fees     *GridFees
}

func (o GridOptions) Apply(c GridConfig) GridConfig {
	if o.Quantity != "" {
		c.Quantity = o.Quantity
	}
	if o.Fees != nil {
		c.Fees = *o.Fees
	}
	return c
}

// Baseline is the grid's reference price and the share count traded per
// grid unit.
type Baseline struct {
	Price  decimal.Decimal
	Volume int64
}

// Grid is the grid trading engine. The first decision rebalances the
// account to a half position and fixes the baseline; later decisions trade
// one grid volume whenever the price leaves [DownEdge, UpEdge].
type Grid struct {
	cfg    GridConfig
	prices oracle.PriceOracle
	period market.Period

	ladder   *Ladder
	baseline *Baseline
}

func NewGrid(cfg GridConfig, prices oracle.PriceOracle, period market.Period) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prices == nil {
		return nil, fmt.Errorf("grid %s: Prices is required", cfg.Name)
	}
	return &Grid{
		cfg:    cfg,
		prices: prices,
		period: period,
		ladder: NewLadder(cfg.BuySizes, cfg.SellSizes),
	}, nil
}

func (g *Grid) Name() string       { return g.cfg.Name }
func (g *Grid) Config() GridConfig { return g.cfg }
func (g *Grid) Ladder() *Ladder    { return g.ladder }

// Baseline returns the current baseline; ok is false before the first
// decision.
func (g *Grid) Baseline() (b Baseline, ok bool) {
	if g.baseline == nil {
		return Baseline{}, false
	}
	return *g.baseline, true
}

func (g *Grid) Decide(ctx context.Context, _ string, code string, acct Account, at time.Time) decision.Decision {
	r := g.prices.ExecutionPrice(ctx, code, g.period, at)
	if !r.OK() {
		return decision.NewNone(at, code, fmt.Sprintf("no usable price (%s)", r.Status))
	}
	return g.DecideAt(code, acct, at, r.Price)
}

// DecideAt runs one grid step at a known price.
func (g *Grid) DecideAt(code string, acct Account, at time.Time, price decimal.Decimal) decision.Decision {
	if !price.IsPositive() {
		return decision.NewNone(at, code, fmt.Sprintf("invalid price %s", price))
	}
	if g.baseline == nil {
		return g.initBaseline(code, acct, at, price)
	}

	vol := g.baseline.Volume
	if vol <= 0 {
		return decision.NewNone(at, code, "grid volume is zero, account too small to trade a grid")
	}

	base := g.baseline.Price
	down := g.ladder.DownEdge(base)
	up := g.ladder.UpEdge(base)
	change := price.Sub(base).Div(base).Mul(decimal.NewFromInt(100))
	msg := fmt.Sprintf("price %s, baseline %s (%s%%), buy below %s, sell above %s",
		price.StringFixed(2), base.StringFixed(3), change.StringFixed(2), down.StringFixed(3), up.StringFixed(3))

	switch {
	case price.LessThan(down):
		if acct.Cash().LessThan(price.Mul(decimal.NewFromInt(vol))) {
			return decision.NewNone(at, code, msg+"; buy level crossed but cash is short of one grid volume")
		}
		return g.onDown(code, at, price, msg)

	case price.GreaterThan(up):
		if acct.AvailableQuantity(code) < vol {
			return decision.NewNone(at, code, msg+"; sell level crossed but sellable shares are short of one grid volume")
		}
		return g.onUp(code, at, price, msg)
	}
	return decision.NewNone(at, code, msg+"; inside grid")
}

func (g *Grid) onDown(code string, at time.Time, price decimal.Decimal, msg string) decision.Decision {
	vol := g.baseline.Volume
	k := g.ladder.CrossDown(g.baseline.Price, price, g.cfg.MultiLevel)
	n := g.ladder.NetBuy(k)
	g.baseline.Price = price.Add(g.feePerShare(price))

	msg = fmt.Sprintf("%s; crossed %d buy level(s), %s", msg, k, g.steps())
	switch {
	case n.Reverse > 0:
		qty := market.FloorLot(int64(math.Round(n.Reverse * float64(vol))))
		return decision.NewSell(at, code, price, qty, fmt.Sprintf("%s; pending sells exceed crossing, sell %d", msg, qty))
	case n.Forward == 0:
		return decision.NewNone(at, code, msg+"; offset by pending sells, cache cleared")
	}
	qty := g.quantity(n.Forward)
	return decision.NewBuy(at, code, price, qty,
		fmt.Sprintf("%s; buy %d, banked buys %g, new baseline %s", msg, qty, g.ladder.BuyCache, g.baseline.Price.StringFixed(3)))
}

func (g *Grid) onUp(code string, at time.Time, price decimal.Decimal, msg string) decision.Decision {
	vol := g.baseline.Volume
	k := g.ladder.CrossUp(g.baseline.Price, price, g.cfg.MultiLevel)
	n := g.ladder.NetSell(k)
	g.baseline.Price = price

	msg = fmt.Sprintf("%s; crossed %d sell level(s), %s", msg, k, g.steps())
	switch {
	case n.Reverse > 0:
		qty := market.FloorLot(int64(math.Round(n.Reverse * float64(vol))))
		return decision.NewBuy(at, code, price, qty, fmt.Sprintf("%s; pending buys exceed crossing, buy %d", msg, qty))
	case n.Forward == 0:
		return decision.NewNone(at, code, msg+"; offset by pending buys, cache cleared")
	}
	qty := g.quantity(n.Forward)
	return decision.NewSell(at, code, price, qty,
		fmt.Sprintf("%s; sell %d, banked sells %g, new baseline %s", msg, qty, g.ladder.SellCache, g.baseline.Price.StringFixed(3)))
}

func (g *Grid) quantity(net float64) int64 {
	vol := g.baseline.Volume
	if g.cfg.Quantity == QuantityScaled {
		return market.FloorLot(int64(math.Round(float64(vol) * net)))
	}
	return vol
}

func (g *Grid) steps() string {
	return fmt.Sprintf("next buy step %s, next sell step %s", g.ladder.BuySize(), g.ladder.SellSize())
}

// feePerShare spreads one round trip's fixed fee and stamp duty over a grid
// volume.
func (g *Grid) feePerShare(price decimal.Decimal) decimal.Decimal {
	vol := decimal.NewFromInt(g.baseline.Volume)
	return vol.Mul(price).Mul(g.cfg.Fees.StampDutyRate).Add(g.cfg.Fees.FixedFee).Div(vol)
}

func (g *Grid) initBaseline(code string, acct Account, at time.Time, price decimal.Decimal) decision.Decision {
	held := acct.TotalQuantity(code)
	lotCost := price.Mul(decimal.NewFromInt(market.LotSize))
	canBuy := acct.Cash().Div(lotCost).Floor().IntPart() * market.LotSize
	vol := (held + canBuy) / 1000 * market.LotSize

	g.baseline = &Baseline{Price: price, Volume: vol}
	info := fmt.Sprintf("baseline %s, grid volume %d", price.StringFixed(2), vol)

	if canBuy > held {
		qty := market.FloorLot((canBuy - held) / 2)
		if qty > 0 {
			return decision.NewBuy(at, code, price, qty, fmt.Sprintf("buy %d to build a half position; %s", qty, info))
		}
	} else {
		qty := market.FloorLot((held - canBuy) / 2)
		if qty > 0 {
			return decision.NewSell(at, code, price, qty, fmt.Sprintf("sell %d to reduce to a half position; %s", qty, info))
		}
	}
	return decision.NewNone(at, code, "already at half position; "+info)
}
