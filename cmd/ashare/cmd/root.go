package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ashare/config"
	"github.com/rustyeddy/ashare/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "ashare",
	Short: "A-share intraday backtester",
	Long: `ashare replays historical A-share candles against trading strategies.

It provides tools for:
  - Importing daily and minute candles into a local SQLite store
  - Backtesting grid and advisor strategies under T+1 settlement
  - Querying recorded runs, trades and equity curves
  - Serving candles and runs to a chart front end

Every command reads its settings from a YAML or JSON config file
(see "ashare config init").`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(logLevel, os.Stderr)
	},
}

var (
	cfgFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); built-in defaults when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// loadConfig reads --config, or returns the defaults when it is unset.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
