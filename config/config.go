package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/ashare/ledger"
	"github.com/rustyeddy/ashare/market"
	"github.com/rustyeddy/ashare/strategies"
)

// Config represents the complete backtest configuration
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Fees       FeesConfig       `json:"fees" yaml:"fees"`
	Grid       GridConfig       `json:"grid" yaml:"grid"`
	EMACross   EMACrossConfig   `json:"ema_cross" yaml:"ema_cross"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Calendar   CalendarConfig   `json:"calendar" yaml:"calendar"`
	Advisor    AdvisorConfig    `json:"advisor" yaml:"advisor"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
}

// FeesConfig is what the ledger charges per trade
type FeesConfig struct {
	FixedFee      float64 `json:"fixed_fee" yaml:"fixed_fee"`
	StampDutyRate float64 `json:"stamp_duty_rate" yaml:"stamp_duty_rate"`
}

// GridConfig overrides the grid variants' quantity mode and cost model
type GridConfig struct {
	Quantity      string  `json:"quantity" yaml:"quantity"` // "baseline" or "scaled"
	FixedFee      float64 `json:"fixed_fee" yaml:"fixed_fee"`
	StampDutyRate float64 `json:"stamp_duty_rate" yaml:"stamp_duty_rate"`
}

// EMACrossConfig tunes the ema-cross strategy
type EMACrossConfig struct {
	FastPeriod int     `json:"fast_period" yaml:"fast_period"`
	SlowPeriod int     `json:"slow_period" yaml:"slow_period"`
	RiskPct    float64 `json:"risk_pct" yaml:"risk_pct"`
	StopPct    float64 `json:"stop_pct" yaml:"stop_pct"`
	RR         float64 `json:"risk_reward" yaml:"risk_reward"`
}

// StockConfig names one stock to simulate
type StockConfig struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// SimulationConfig contains the runs to execute: every stock with every
// strategy over [start, end]
type SimulationConfig struct {
	Stocks     []StockConfig `json:"stocks" yaml:"stocks"`
	Strategies []string      `json:"strategies" yaml:"strategies"`
	Start      string        `json:"start" yaml:"start"` // YYYY-MM-DD
	End        string        `json:"end" yaml:"end"`
	Period     string        `json:"period" yaml:"period"` // minute candle period used for execution
	Parallel   int           `json:"parallel" yaml:"parallel"`
	LogDir     string        `json:"log_dir,omitempty" yaml:"log_dir,omitempty"`
}

// CalendarConfig lists exchange holidays (YYYY-MM-DD)
type CalendarConfig struct {
	Holidays []string `json:"holidays,omitempty" yaml:"holidays,omitempty"`
}

// AdvisorConfig configures the LLM backed strategy
type AdvisorConfig struct {
	BaseURL         string `json:"base_url" yaml:"base_url"`
	Model           string `json:"model" yaml:"model"`
	APIKeyEnv       string `json:"api_key_env" yaml:"api_key_env"`
	Timeout         string `json:"timeout" yaml:"timeout"` // e.g. "60s"
	DailyDays       int    `json:"daily_days" yaml:"daily_days"`
	MinuteDays      int    `json:"minute_days" yaml:"minute_days"`
	RecentDecisions int    `json:"recent_decisions" yaml:"recent_decisions"`
}

// StoreConfig locates the candle database
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DecisionsFile string `json:"decisions_file,omitempty" yaml:"decisions_file,omitempty"`
	EquityFile    string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DecisionFiles bool   `json:"decision_files" yaml:"decision_files"` // per-run JSON file in simulation.log_dir
}

// ServerConfig configures the read API
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid. It does not look at the
// environment; see APIKey.
func (c *Config) Validate() error {
	if c.Account.InitialCash <= 0 {
		return fmt.Errorf("account.initial_cash must be positive")
	}
	if c.Fees.FixedFee < 0 || c.Fees.StampDutyRate < 0 || c.Fees.StampDutyRate >= 1 {
		return fmt.Errorf("fees.fixed_fee and fees.stamp_duty_rate must be non-negative, rate below 1")
	}
	switch strategies.QuantityMode(c.Grid.Quantity) {
	case "", strategies.QuantityBaseline, strategies.QuantityScaled:
	default:
		return fmt.Errorf("grid.quantity must be 'baseline' or 'scaled'")
	}
	if c.Grid.FixedFee < 0 || c.Grid.StampDutyRate < 0 || c.Grid.StampDutyRate >= 1 {
		return fmt.Errorf("grid.fixed_fee and grid.stamp_duty_rate must be non-negative, rate below 1")
	}
	if e := c.EMACross; e.FastPeriod < 0 || e.SlowPeriod < 0 || e.RiskPct < 0 || e.StopPct < 0 || e.StopPct >= 1 || e.RR < 0 {
		return fmt.Errorf("ema_cross values must be non-negative, stop_pct below 1")
	}
	if e := c.EMACross; e.FastPeriod > 0 && e.SlowPeriod > 0 && e.FastPeriod >= e.SlowPeriod {
		return fmt.Errorf("ema_cross.fast_period must be below ema_cross.slow_period")
	}

	if len(c.Simulation.Stocks) == 0 {
		return fmt.Errorf("simulation.stocks is required")
	}
	for _, s := range c.Simulation.Stocks {
		if strings.TrimSpace(s.Code) == "" {
			return fmt.Errorf("simulation.stocks entries need a code")
		}
	}
	if len(c.Simulation.Strategies) == 0 {
		return fmt.Errorf("simulation.strategies is required")
	}
	known := strategies.Names()
	for _, name := range c.Simulation.Strategies {
		if !contains(known, strings.ToLower(strings.TrimSpace(name))) {
			return fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(known, ", "))
		}
	}
	start, end, err := c.Simulation.Dates()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("simulation.end must not be before simulation.start")
	}
	p, err := market.ParsePeriod(c.Simulation.Period)
	if err != nil {
		return fmt.Errorf("simulation.period: %w", err)
	}
	if !p.IsMinute() {
		return fmt.Errorf("simulation.period must be a minute period")
	}
	if c.Simulation.Parallel < 0 {
		return fmt.Errorf("simulation.parallel must not be negative")
	}

	if _, err := market.NewCalendar(c.Calendar.Holidays); err != nil {
		return fmt.Errorf("calendar.holidays: %w", err)
	}

	if c.UsesAdvisor() {
		if c.Advisor.APIKeyEnv == "" {
			return fmt.Errorf("advisor.api_key_env is required for the advisor strategy")
		}
		if _, err := c.Advisor.ParseTimeout(); err != nil {
			return err
		}
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "csv":
		if c.Journal.DecisionsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal decisions_file and equity_file required for CSV type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}
	if c.Journal.DecisionFiles && c.Simulation.LogDir == "" {
		return fmt.Errorf("simulation.log_dir is required for journal.decision_files")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Dates parses simulation.start and simulation.end.
func (s SimulationConfig) Dates() (time.Time, time.Time, error) {
	start, err := market.ParseDate(s.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("simulation.start: %w", err)
	}
	end, err := market.ParseDate(s.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("simulation.end: %w", err)
	}
	return start, end, nil
}

// UsesAdvisor reports whether any configured strategy calls the LLM.
func (c *Config) UsesAdvisor() bool {
	for _, name := range c.Simulation.Strategies {
		if strings.EqualFold(strings.TrimSpace(name), "advisor") {
			return true
		}
	}
	return false
}

// ParseTimeout returns the request timeout; empty means 60s.
func (a AdvisorConfig) ParseTimeout() (time.Duration, error) {
	if a.Timeout == "" {
		return 60 * time.Second, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("advisor.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("advisor.timeout must be positive")
	}
	return d, nil
}

// APIKey reads the advisor key from the configured environment variable.
func (a AdvisorConfig) APIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(a.APIKeyEnv))
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", a.APIKeyEnv)
	}
	return key, nil
}

// PromptOptions converts the history sizes for the prompt builder.
func (a AdvisorConfig) PromptOptions() strategies.PromptOptions {
	return strategies.PromptOptions{
		DailyDays:       a.DailyDays,
		MinuteDays:      a.MinuteDays,
		RecentDecisions: a.RecentDecisions,
	}
}

// LedgerFees converts the fee section for the ledger.
func (c *Config) LedgerFees() ledger.Fees {
	return ledger.Fees{
		FixedFee:      decimal.NewFromFloat(c.Fees.FixedFee),
		StampDutyRate: decimal.NewFromFloat(c.Fees.StampDutyRate),
	}
}

// GridOptions converts the grid section for the strategy registry.
func (c *Config) GridOptions() strategies.GridOptions {
	return strategies.GridOptions{
		Quantity: strategies.QuantityMode(c.Grid.Quantity),
		Fees: &strategies.GridFees{
			FixedFee:      decimal.NewFromFloat(c.Grid.FixedFee),
			StampDutyRate: decimal.NewFromFloat(c.Grid.StampDutyRate),
		},
	}
}

// EMACrossOptions converts the ema_cross section for the strategy registry.
func (c *Config) EMACrossOptions() strategies.EMACrossConfig {
	return strategies.EMACrossConfig{
		FastPeriod: c.EMACross.FastPeriod,
		SlowPeriod: c.EMACross.SlowPeriod,
		RiskPct:    c.EMACross.RiskPct,
		StopPct:    c.EMACross.StopPct,
		RR:         c.EMACross.RR,
	}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialCash: 100000,
		},
		Fees: FeesConfig{
			FixedFee:      5,
			StampDutyRate: 0.0005,
		},
		Grid: GridConfig{
			Quantity:      string(strategies.QuantityBaseline),
			FixedFee:      10,
			StampDutyRate: 0.0005,
		},
		EMACross: EMACrossConfig{
			FastPeriod: 5,
			SlowPeriod: 20,
			RiskPct:    0.02,
			StopPct:    0.03,
			RR:         2,
		},
		Simulation: SimulationConfig{
			Stocks:     []StockConfig{{Code: "600036", Name: "招商银行"}},
			Strategies: []string{"grid-v3"},
			Start:      "2025-03-03",
			End:        "2025-03-14",
			Period:     string(market.M15),
			Parallel:   4,
			LogDir:     "./log",
		},
		Advisor: AdvisorConfig{
			BaseURL:         "https://api.deepseek.com/v1",
			Model:           "deepseek-chat",
			APIKeyEnv:       "DEEPSEEK_API_KEY",
			Timeout:         "60s",
			DailyDays:       30,
			MinuteDays:      3,
			RecentDecisions: 10,
		},
		Store: StoreConfig{
			Path: "./ashare.sqlite",
		},
		Journal: JournalConfig{
			Type:          "sqlite",
			DBPath:        "./journal.sqlite",
			DecisionFiles: true,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
		},
	}
}
