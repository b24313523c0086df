package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/ashare/candles"
	"github.com/rustyeddy/ashare/journal"
	"github.com/rustyeddy/ashare/market"
	"github.com/rustyeddy/ashare/webapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve candles and recorded runs over HTTP",
	Long: `Serve the chart API:

  GET /api/stock/:code/daily?end_date=YYYY-MM-DD
  GET /api/stock/:code/min5?end_date=YYYY-MM-DD
  GET /api/runs, /api/runs/:id[/decisions|/equity|/org]
  GET /ws/:code      (5 minute candles pushed every few seconds)
  GET /metrics       (Prometheus)

Example:
  ashare serve -c backtest.yaml --addr :8000`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if logrus.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := candles.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open candle store: %w", err)
	}
	defer store.Close()

	cal, err := market.NewCalendar(cfg.Calendar.Holidays)
	if err != nil {
		return err
	}

	opts := webapi.Options{
		Candles:        store,
		Calendar:       cal,
		Log:            logrus.StandardLogger(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if cfg.Journal.Type == "sqlite" {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		opts.Runs = j
	}

	srv, err := webapi.NewServer(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, addr)
}
