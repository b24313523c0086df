package strategies

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/market"
	"github.com/rustyeddy/ashare/oracle"
)

// Hold never trades.
type Hold struct{}

func (Hold) Name() string { return "hold" }

func (Hold) Decide(_ context.Context, _ string, code string, _ Account, at time.Time) decision.Decision {
	return decision.NewNone(at, code, "hold")
}

// BuyOnce spends all cash on the first decision it can price and then holds.
// It is the traded counterpart of the buy-and-hold benchmark and is meant as
// a wiring check for the driver.
type BuyOnce struct {
	Prices oracle.PriceOracle
	Period market.Period
}

func (s *BuyOnce) Name() string { return "buy-once" }

func (s *BuyOnce) Decide(ctx context.Context, _ string, code string, acct Account, at time.Time) decision.Decision {
	if acct.TotalQuantity(code) > 0 {
		return decision.NewNone(at, code, "position open, holding")
	}
	r := s.Prices.ExecutionPrice(ctx, code, s.Period, at)
	if !r.OK() {
		return decision.NewNone(at, code, fmt.Sprintf("no usable price (%s)", r.Status))
	}

	fees := acct.Fees()
	qty := market.FloorLot(acct.Cash().Div(r.Price).IntPart())
	for qty > 0 && fees.BuyCost(r.Price, qty).GreaterThan(acct.Cash()) {
		qty -= market.LotSize
	}
	if qty <= 0 {
		return decision.NewNone(at, code, "cash is short of one lot")
	}
	return decision.NewBuy(at, code, r.Price, qty, fmt.Sprintf("buy %d and hold", qty))
}
