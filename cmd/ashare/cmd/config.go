package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ashare/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage backtest configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  ashare config init -o backtest.yaml
  ashare config validate -f backtest.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  ashare config init -o backtest.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  ashare config validate -f backtest.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "backtest.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  ashare backtest -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	codes := make([]string, len(cfg.Simulation.Stocks))
	for i, s := range cfg.Simulation.Stocks {
		codes[i] = s.Code
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Account: %.2f (fees %.2f + %.4f)\n", cfg.Account.InitialCash, cfg.Fees.FixedFee, cfg.Fees.StampDutyRate)
	fmt.Printf("  Stocks: %s\n", strings.Join(codes, ", "))
	fmt.Printf("  Strategies: %s\n", strings.Join(cfg.Simulation.Strategies, ", "))
	fmt.Printf("  Period: %s to %s (%s minute candles)\n", cfg.Simulation.Start, cfg.Simulation.End, cfg.Simulation.Period)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	if cfg.UsesAdvisor() {
		if _, err := cfg.Advisor.APIKey(); err != nil {
			fmt.Printf("  Warning: %v\n", err)
		}
	}
	return nil
}
