package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ashare/strategies"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, 100000.0, cfg.Account.InitialCash)
	assert.Equal(t, 5.0, cfg.Fees.FixedFee)
	assert.Equal(t, 10.0, cfg.Grid.FixedFee)
	assert.Equal(t, "DEEPSEEK_API_KEY", cfg.Advisor.APIKeyEnv)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"zero cash", func(c *Config) { c.Account.InitialCash = 0 }, "account.initial_cash must be positive"},
		{"negative fee", func(c *Config) { c.Fees.FixedFee = -1 }, "fees.fixed_fee"},
		{"bad quantity mode", func(c *Config) { c.Grid.Quantity = "double" }, "grid.quantity must be"},
		{"empty quantity mode", func(c *Config) { c.Grid.Quantity = "" }, ""},
		{"ema stop at 100%", func(c *Config) { c.EMACross.StopPct = 1 }, "ema_cross values"},
		{"ema fast above slow", func(c *Config) { c.EMACross.FastPeriod = 30 }, "ema_cross.fast_period must be below"},
		{"ema defaults left to strategy", func(c *Config) { c.EMACross = EMACrossConfig{} }, ""},
		{"no stocks", func(c *Config) { c.Simulation.Stocks = nil }, "simulation.stocks is required"},
		{"stock without code", func(c *Config) { c.Simulation.Stocks = []StockConfig{{Name: "x"}} }, "need a code"},
		{"no strategies", func(c *Config) { c.Simulation.Strategies = nil }, "simulation.strategies is required"},
		{"unknown strategy", func(c *Config) { c.Simulation.Strategies = []string{"martingale"} }, `unknown strategy "martingale"`},
		{"strategy case", func(c *Config) { c.Simulation.Strategies = []string{"Grid-V1"} }, ""},
		{"bad start", func(c *Config) { c.Simulation.Start = "03/03/2025" }, "simulation.start"},
		{"end before start", func(c *Config) { c.Simulation.End = "2025-03-01" }, "simulation.end must not be before"},
		{"daily period", func(c *Config) { c.Simulation.Period = "D" }, "must be a minute period"},
		{"unknown period", func(c *Config) { c.Simulation.Period = "7" }, "simulation.period"},
		{"negative parallel", func(c *Config) { c.Simulation.Parallel = -1 }, "simulation.parallel"},
		{"bad holiday", func(c *Config) { c.Calendar.Holidays = []string{"2025-13-01"} }, "calendar.holidays"},
		{"advisor without key env", func(c *Config) {
			c.Simulation.Strategies = []string{"advisor"}
			c.Advisor.APIKeyEnv = ""
		}, "advisor.api_key_env is required"},
		{"advisor bad timeout", func(c *Config) {
			c.Simulation.Strategies = []string{"advisor"}
			c.Advisor.Timeout = "soon"
		}, "advisor.timeout"},
		{"no store", func(c *Config) { c.Store.Path = "" }, "store.path is required"},
		{"bad journal", func(c *Config) { c.Journal.Type = "postgres" }, "journal.type must be"},
		{"csv journal files", func(c *Config) { c.Journal.Type = "csv" }, "decisions_file and equity_file required"},
		{"sqlite journal path", func(c *Config) { c.Journal.DBPath = "" }, "db_path required"},
		{"decision files need log dir", func(c *Config) { c.Simulation.LogDir = "" }, "simulation.log_dir is required"},
		{"no journal", func(c *Config) { c.Journal.Type = "none" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Simulation.Strategies = []string{"grid-v1", "grid-v2"}
			cfg.Calendar.Holidays = []string{"2025-05-01"}
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Account, loaded.Account)
			assert.Equal(t, cfg.Simulation, loaded.Simulation)
			assert.Equal(t, cfg.Calendar, loaded.Calendar)
			assert.Equal(t, cfg.Advisor, loaded.Advisor)
		})
	}
}

func TestLoadPartialYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
simulation:
  stocks:
    - code: "000001"
      name: PAB
  strategies: [grid-v2]
  start: "2025-01-06"
  end: "2025-01-10"
  period: "15"
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []StockConfig{{Code: "000001", Name: "PAB"}}, cfg.Simulation.Stocks)
	assert.Equal(t, []string{"grid-v2"}, cfg.Simulation.Strategies)
	assert.Equal(t, 100000.0, cfg.Account.InitialCash)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  initial_cash: -5\n"), 0o644))
	_, err = LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestAdvisorTimeoutAndKey(t *testing.T) {
	a := Default().Advisor
	d, err := a.ParseTimeout()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, d)

	a.Timeout = ""
	d, err = a.ParseTimeout()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, d)

	a.APIKeyEnv = "ASHARE_TEST_KEY"
	t.Setenv("ASHARE_TEST_KEY", "")
	_, err = a.APIKey()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASHARE_TEST_KEY is not set")

	t.Setenv("ASHARE_TEST_KEY", " sk-123 ")
	key, err := a.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-123", key)
}

func TestConversions(t *testing.T) {
	cfg := Default()

	fees := cfg.LedgerFees()
	assert.True(t, fees.FixedFee.Equal(decimal.NewFromInt(5)))
	assert.True(t, fees.StampDutyRate.Equal(decimal.RequireFromString("0.0005")))

	cfg.Grid.Quantity = "scaled"
	opts := cfg.GridOptions()
	assert.Equal(t, strategies.QuantityScaled, opts.Quantity)
	require.NotNil(t, opts.Fees)
	assert.True(t, opts.Fees.FixedFee.Equal(decimal.NewFromInt(10)))

	applied := opts.Apply(strategies.GridV1Config())
	assert.Equal(t, strategies.QuantityScaled, applied.Quantity)

	ema := cfg.EMACrossOptions()
	assert.Equal(t, strategies.EMACrossConfigDefaults(), ema)

	p := cfg.Advisor.PromptOptions()
	assert.Equal(t, strategies.PromptOptions{DailyDays: 30, MinuteDays: 3, RecentDecisions: 10}, p)
}
