package strategies

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/ashare/decision"
	"github.com/rustyeddy/ashare/ledger"
	"github.com/rustyeddy/ashare/market"
	"github.com/rustyeddy/ashare/oracle"
)

// Account is the read-only view of a ledger a strategy decides from.
// *ledger.Account implements it.
type Account interface {
	Cash() decimal.Decimal
	Fees() ledger.Fees
	TotalQuantity(code string) int64
	AvailableQuantity(code string) int64
	Summary(prices map[string]decimal.Decimal) ledger.Summary
	RecentDecisionsSummary(code string, n int) string
}

// Strategy turns the market and the account into one decision per decision
// point. A Strategy owns its state and serves exactly one run; it never
// returns an error, failures are reported as a none decision with a reason.
type Strategy interface {
	Name() string
	Decide(ctx context.Context, stockName, stockCode string, acct Account, at time.Time) decision.Decision
}

// Deps carries what a strategy factory may need. Fields a strategy does not
// use may be left zero.
type Deps struct {
	Prices oracle.PriceOracle
	Period market.Period
	Grid   GridOptions
	EMA    EMACrossConfig

	Asker    Asker
	Candles  CandleHistory
	Calendar *market.Calendar
	Prompt   PromptOptions

	Log logrus.FieldLogger
}

// Factory builds a fresh strategy for one run.
type Factory func(Deps) (Strategy, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a strategy available by name. Names are case-insensitive.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = f
}

// Names lists the registered strategy names in order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// StrategyByName builds a new instance of the named strategy.
func StrategyByName(name string, deps Deps) (Strategy, error) {
	registryMu.RLock()
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	if deps.Period == "" {
		deps.Period = market.M15
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	return f(deps)
}

func init() {
	Register("hold", func(Deps) (Strategy, error) { return Hold{}, nil })
	Register("buy-once", func(d Deps) (Strategy, error) {
		if d.Prices == nil {
			return nil, fmt.Errorf("buy-once: Prices is required")
		}
		return &BuyOnce{Prices: d.Prices, Period: d.Period}, nil
	})
	for _, cfg := range []GridConfig{GridV1Config(), GridV2Config(), GridV3Config()} {
		cfg := cfg
		Register(cfg.Name, func(d Deps) (Strategy, error) {
			return NewGrid(d.Grid.Apply(cfg), d.Prices, d.Period)
		})
	}
	Register("ema-cross", func(d Deps) (Strategy, error) { return NewEMACross(d.EMA, d.Prices, d.Period) })
	Register("advisor", func(d Deps) (Strategy, error) { return NewAdvisor(d) })
}
