package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/ashare/candles"
	"github.com/rustyeddy/ashare/market"
)

var candlesCmd = &cobra.Command{
	Use:   "candles",
	Short: "Manage the local candle store",
	Long: `Import and inspect the daily and minute candles backtests read.

Subcommands:
  import - Load a candle CSV (time,open,high,low,close[,volume[,amount]])
  show   - Print stored candles for a stock
  list   - List stocks with daily data

Examples:
  ashare candles import data/600036_15.csv --code 600036 --period 15 --name 招商银行
  ashare candles show 600036 --period D --from 2025-03-01 --to 2025-03-14`,
}

var candlesImportCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Import candles from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCandlesImport,
}

var candlesShowCmd = &cobra.Command{
	Use:   "show <code>",
	Short: "Print stored candles",
	Args:  cobra.ExactArgs(1),
	RunE:  runCandlesShow,
}

var candlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stocks with daily data",
	Args:  cobra.NoArgs,
	RunE:  runCandlesList,
}

var (
	candlesCode   string
	candlesName   string
	candlesPeriod string
	candlesFrom   string
	candlesTo     string
)

func init() {
	rootCmd.AddCommand(candlesCmd)
	candlesCmd.AddCommand(candlesImportCmd)
	candlesCmd.AddCommand(candlesShowCmd)
	candlesCmd.AddCommand(candlesListCmd)

	candlesCmd.PersistentFlags().StringVarP(&candlesPeriod, "period", "p", "D", "candle period (1, 5, 15, 30, 60, D)")
	candlesCmd.PersistentFlags().StringVar(&candlesFrom, "from", "", "first date YYYY-MM-DD (optional)")
	candlesCmd.PersistentFlags().StringVar(&candlesTo, "to", "", "last date YYYY-MM-DD (optional)")

	candlesImportCmd.Flags().StringVar(&candlesCode, "code", "", "stock code (required)")
	candlesImportCmd.Flags().StringVar(&candlesName, "name", "", "stock display name")
	candlesImportCmd.MarkFlagRequired("code")
}

func openStore() (*candles.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := candles.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open candle store: %w", err)
	}
	return s, nil
}

// dateRange parses --from/--to. The upper bound is the end of --to.
func dateRange() (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if candlesFrom != "" {
		if from, err = market.ParseDate(candlesFrom); err != nil {
			return from, to, fmt.Errorf("--from: %w", err)
		}
	}
	if candlesTo != "" {
		if to, err = market.ParseDate(candlesTo); err != nil {
			return from, to, fmt.Errorf("--to: %w", err)
		}
		to = to.Add(24*time.Hour - time.Second)
	}
	return from, to, nil
}

func runCandlesImport(cmd *cobra.Command, args []string) error {
	p, err := market.ParsePeriod(candlesPeriod)
	if err != nil {
		return err
	}
	from, to, err := dateRange()
	if err != nil {
		return err
	}

	feed, err := candles.OpenCSV(args[0], from, to)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer feed.Close()

	cs, err := feed.ReadAll()
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	var n int
	if p == market.Daily {
		n, err = s.SaveDaily(ctx, candlesCode, cs)
	} else {
		n, err = s.SaveMinute(ctx, candlesCode, p, cs)
	}
	if err != nil {
		return fmt.Errorf("save candles: %w", err)
	}
	if candlesName != "" {
		if err := s.SaveStock(ctx, candlesCode, candlesName); err != nil {
			return fmt.Errorf("save stock name: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"stock":  candlesCode,
		"period": p,
		"file":   args[0],
	}).Infof("imported %d candles", n)
	return nil
}

func runCandlesShow(cmd *cobra.Command, args []string) error {
	p, err := market.ParsePeriod(candlesPeriod)
	if err != nil {
		return err
	}
	from, to, err := dateRange()
	if err != nil {
		return err
	}
	if to.IsZero() {
		to = time.Now().In(market.Location)
	}
	if from.IsZero() {
		from = market.StartOfDay(to).AddDate(0, 0, -30)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	code := args[0]
	var cs []market.Candle
	layout := market.DateTimeLayout
	if p == market.Daily {
		cs, err = s.Daily(ctx, code, from, to)
		layout = market.DateLayout
	} else {
		cs, err = s.Minute(ctx, code, p, from, to)
	}
	if err != nil {
		return fmt.Errorf("query candles: %w", err)
	}

	name, _ := s.StockName(ctx, code)
	fmt.Printf("%s (%s) period %s, %d candles\n\n", name, code, p, len(cs))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Time\tOpen\tHigh\tLow\tClose\tVolume\t")
	for _, c := range cs {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t\n",
			c.Time.In(market.Location).Format(layout), c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	return w.Flush()
}

func runCandlesList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	codes, err := s.Codes(ctx)
	if err != nil {
		return fmt.Errorf("list stocks: %w", err)
	}
	for _, code := range codes {
		name, _ := s.StockName(ctx, code)
		latest, ok, err := s.LatestDaily(ctx, code)
		if err != nil {
			return err
		}
		last := "no daily candles"
		if ok {
			last = "latest " + latest.In(market.Location).Format(market.DateLayout)
		}
		fmt.Printf("%s  %-10s  %s\n", code, name, last)
	}
	return nil
}
