package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/ashare/candles"
	"github.com/rustyeddy/ashare/config"
	"github.com/rustyeddy/ashare/internal/logging"
	"github.com/rustyeddy/ashare/journal"
	"github.com/rustyeddy/ashare/ledger"
	"github.com/rustyeddy/ashare/llm"
	"github.com/rustyeddy/ashare/market"
	"github.com/rustyeddy/ashare/oracle"
	"github.com/rustyeddy/ashare/pkg/id"
	"github.com/rustyeddy/ashare/sim"
	"github.com/rustyeddy/ashare/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest strategies against stored candles",
	Long: `Backtest replays every configured stock with every configured strategy
over [simulation.start, simulation.end]. Each pair is an independent run with
its own account; runs execute in parallel.

Supported strategies:
  - hold:     Does nothing (baseline)
  - buy-once: Buys one lot at the first decision time
  - grid-v1:  Single level grid
  - grid-v2:  Two level grid
  - grid-v3:  Multi level grid with a full ladder
  - ema-cross: Long-only fast/slow EMA crossover with a stop and a target
  - advisor:  Asks a chat model for every decision

Flags override the config file.

Example:
  ashare backtest -c backtest.yaml --stock 600036 --strategy grid-v3`,
	RunE: runBacktest,
}

var (
	btStocks     []string
	btStrategies []string
	btStart      string
	btEnd        string
	btCash       float64
	btParallel   int
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringSliceVarP(&btStocks, "stock", "s", nil, "stock code(s) to simulate")
	backtestCmd.Flags().StringSliceVar(&btStrategies, "strategy", nil, "strategy name(s): "+strings.Join(strategies.Names(), ", "))
	backtestCmd.Flags().StringVar(&btStart, "start", "", "first date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "last date YYYY-MM-DD")
	backtestCmd.Flags().Float64VarP(&btCash, "cash", "b", 0, "initial cash per run")
	backtestCmd.Flags().IntVarP(&btParallel, "parallel", "j", 0, "runs executed at once")
}

func applyBacktestFlags(cfg *config.Config) error {
	if len(btStocks) > 0 {
		cfg.Simulation.Stocks = cfg.Simulation.Stocks[:0]
		for _, code := range btStocks {
			cfg.Simulation.Stocks = append(cfg.Simulation.Stocks, config.StockConfig{Code: code})
		}
	}
	if len(btStrategies) > 0 {
		cfg.Simulation.Strategies = btStrategies
	}
	if btStart != "" {
		cfg.Simulation.Start = btStart
	}
	if btEnd != "" {
		cfg.Simulation.End = btEnd
	}
	if btCash > 0 {
		cfg.Account.InitialCash = btCash
	}
	if btParallel > 0 {
		cfg.Simulation.Parallel = btParallel
	}
	return cfg.Validate()
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyBacktestFlags(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	store, err := candles.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open candle store: %w", err)
	}
	defer store.Close()

	shared, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer shared.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newRunBuilder(cfg, store, shared)
	if err != nil {
		return err
	}
	defer b.close()

	var runners []*sim.Runner
	for _, stock := range cfg.Simulation.Stocks {
		for _, name := range cfg.Simulation.Strategies {
			r, err := b.build(ctx, stock, name)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", stock.Code, name, err)
			}
			runners = append(runners, r)
		}
	}

	logrus.WithFields(logrus.Fields{
		"runs":     len(runners),
		"parallel": cfg.Simulation.Parallel,
		"start":    cfg.Simulation.Start,
		"end":      cfg.Simulation.End,
	}).Info("starting backtest")

	results, runErr := sim.RunAll(ctx, runners, cfg.Simulation.Parallel)
	for _, res := range results {
		if res.RunID == "" {
			continue
		}
		sim.PrintResult(os.Stdout, res)
	}
	if b.asker != nil {
		logrus.WithField("model", b.asker.Model()).Infof("LLM tokens used: %d", b.asker.TokensUsed())
	}
	if errors.Is(runErr, context.Canceled) {
		logrus.Warn("backtest interrupted")
		return nil
	}
	return runErr
}

// openJournal builds the journal every run of this invocation shares.
func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		return journal.NewCSV(cfg.Journal.DecisionsFile, cfg.Journal.EquityFile)
	default:
		return journal.Discard{}, nil
	}
}

// runBuilder assembles one sim.Runner per (stock, strategy).
type runBuilder struct {
	cfg    *config.Config
	store  *candles.Store
	shared journal.Journal
	oracle *oracle.CandleOracle
	cal    *market.Calendar
	period market.Period
	start  time.Time
	end    time.Time
	asker  *llm.Client

	closers []func() error
}

func newRunBuilder(cfg *config.Config, store *candles.Store, shared journal.Journal) (*runBuilder, error) {
	cal, err := market.NewCalendar(cfg.Calendar.Holidays)
	if err != nil {
		return nil, err
	}
	start, end, err := cfg.Simulation.Dates()
	if err != nil {
		return nil, err
	}
	period, err := market.ParsePeriod(cfg.Simulation.Period)
	if err != nil {
		return nil, err
	}

	b := &runBuilder{
		cfg:    cfg,
		store:  store,
		shared: shared,
		oracle: oracle.NewCandleOracle(store),
		cal:    cal,
		period: period,
		start:  start,
		end:    end,
	}
	if cfg.UsesAdvisor() {
		key, err := cfg.Advisor.APIKey()
		if err != nil {
			return nil, err
		}
		timeout, err := cfg.Advisor.ParseTimeout()
		if err != nil {
			return nil, err
		}
		b.asker = llm.NewClient(key, cfg.Advisor.BaseURL, cfg.Advisor.Model, timeout)
	}
	return b, nil
}

func (b *runBuilder) build(ctx context.Context, stock config.StockConfig, strategyName string) (*sim.Runner, error) {
	name := stock.Name
	if name == "" {
		n, err := b.store.StockName(ctx, stock.Code)
		if err != nil {
			return nil, fmt.Errorf("stock name: %w", err)
		}
		name = n
	}

	runID := id.NewRunID()
	created := time.Now()
	runName := sim.RunName(name, stock.Code, b.start, b.end, strings.ToLower(strategyName), created)

	log := logrus.FieldLogger(logrus.StandardLogger())
	if b.cfg.Simulation.LogDir != "" {
		l, f, err := logging.RunFile(logrus.StandardLogger(), b.cfg.Simulation.LogDir, runName)
		if err != nil {
			return nil, fmt.Errorf("run log: %w", err)
		}
		b.closers = append(b.closers, f.Close)
		log = l
	}

	deps := strategies.Deps{
		Prices:   b.oracle,
		Period:   b.period,
		Grid:     b.cfg.GridOptions(),
		EMA:      b.cfg.EMACrossOptions(),
		Candles:  b.store,
		Calendar: b.cal,
		Prompt:   b.cfg.Advisor.PromptOptions(),
		Log:      log,
	}
	if b.asker != nil {
		deps.Asker = b.asker
	}
	strat, err := strategies.StrategyByName(strategyName, deps)
	if err != nil {
		return nil, err
	}

	jr := b.shared
	if b.cfg.Journal.DecisionFiles {
		jf, err := journal.NewJSONFile(filepath.Join(b.cfg.Simulation.LogDir, runName+".json"), journal.SimulationInfo{
			Name:        runName,
			UUID:        runID,
			StockCode:   stock.Code,
			StockName:   name,
			StartDate:   b.start.Format(market.DateLayout),
			EndDate:     b.end.Format(market.DateLayout),
			Strategy:    strat.Name(),
			CreatedTime: created.In(market.Location).Format(market.DateTimeLayout),
		})
		if err != nil {
			return nil, fmt.Errorf("decision file: %w", err)
		}
		jr = journal.Multi{b.shared, jf}
	}

	return &sim.Runner{
		Strategy:  strat,
		Account:   ledger.NewAccount(decimal.NewFromFloat(b.cfg.Account.InitialCash), b.cfg.LedgerFees()),
		Oracle:    b.oracle,
		Calendar:  b.cal,
		Journal:   jr,
		Log:       log,
		RunID:     runID,
		Name:      runName,
		StockCode: stock.Code,
		StockName: name,
		Start:     b.start,
		End:       b.end,
		Period:    b.period,
	}, nil
}

func (b *runBuilder) close() {
	for _, c := range b.closers {
		_ = c()
	}
}
