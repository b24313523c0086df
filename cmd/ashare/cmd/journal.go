package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ashare/journal"
	"github.com/rustyeddy/ashare/market"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query recorded backtest runs",
	Long: `Query and display backtest runs from the SQLite journal.

Subcommands:
  runs      - List recorded runs
  decisions - List the trades of a run
  org       - Export a run as an Org-mode document
  file      - Print a per-run JSON decision file

Examples:
  ashare journal runs
  ashare journal decisions <run-id>
  ashare journal org <run-id> > run.org`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalDecisionsCmd = &cobra.Command{
	Use:   "decisions <run-id>",
	Short: "List the trades of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDecisions,
}

var journalOrgCmd = &cobra.Command{
	Use:   "org <run-id>",
	Short: "Export a run as an Org-mode document",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalOrg,
}

var journalFileCmd = &cobra.Command{
	Use:   "file <decisions.json>",
	Short: "Print a per-run JSON decision file as Org",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalFile,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalDecisionsCmd)
	journalCmd.AddCommand(journalOrgCmd)
	journalCmd.AddCommand(journalFileCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default journal.db_path from config)")
}

func openJournalDB() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no journal database: pass --db or set journal.db_path")
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(context.Background())
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tNAME\tSTATUS\tTRADES\tRETURN\tBENCHMARK")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s%%\t%s%%\n",
			r.RunID, r.Name, r.Status, r.Trades,
			r.ReturnPct().StringFixed(2), r.BenchmarkPct().StringFixed(2))
	}
	return w.Flush()
}

func runJournalDecisions(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := context.Background()
	if _, err := j.GetRun(ctx, args[0]); err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	ds, err := j.ListDecisions(ctx, args[0])
	if err != nil {
		return fmt.Errorf("query decisions: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DECIDED\tFILLED\tACTION\tQTY\tPRICE\tREASON")
	for _, d := range ds {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			d.DecisionTime.In(market.Location).Format(market.DateTimeLayout),
			d.ExecutedAt.In(market.Location).Format("15:04"),
			d.Action, d.Quantity, d.Price.StringFixed(2), d.Reason)
	}
	return w.Flush()
}

func runJournalOrg(cmd *cobra.Command, args []string) error {
	j, err := openJournalDB()
	if err != nil {
		return err
	}
	defer j.Close()

	doc, err := journal.ExportRunOrg(context.Background(), j, args[0])
	if err != nil {
		return fmt.Errorf("export run: %w", err)
	}
	fmt.Print(doc)
	return nil
}

func runJournalFile(cmd *cobra.Command, args []string) error {
	f, err := journal.ReadDecisionFile(args[0])
	if err != nil {
		return fmt.Errorf("read decision file: %w", err)
	}

	info := f.SimulationInfo
	fmt.Printf("* %s\n", info.Name)
	fmt.Printf("  %s (%s) %s .. %s, strategy %s\n\n", info.StockName, info.StockCode, info.StartDate, info.EndDate, info.Strategy)
	for _, d := range f.Decisions {
		fmt.Printf("** %s %s %d @ %s\n", d.DecisionTime, d.Action, d.Quantity, d.Price.StringFixed(2))
		if d.Reason != "" {
			fmt.Printf("   %s\n", d.Reason)
		}
	}
	return nil
}
