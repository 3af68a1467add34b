package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/report"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display journal records from a SQLite (or Postgres) journal.

Subcommands:
  trade      - Get details of a specific trade by ID
  trades     - List trades closed in a date range
  today      - List trades closed today
  day        - List trades closed on a specific day
  snapshots  - List portfolio snapshots in a date range
  positions  - List open positions
  orders     - List orders
  report     - Performance metrics over a date range

Examples:
  papertrader journal trade TRADE-01HV3K9Z...
  papertrader journal today
  papertrader journal day 2025-01-15
  papertrader journal report --from 2025-01-01 --capital 100000`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List trades closed between --from and --to",
	Args:  cobra.NoArgs,
	RunE:  runJournalTrades,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalSnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List snapshots between --from and --to as an Org table",
	Args:  cobra.NoArgs,
	RunE:  runJournalSnapshots,
}

var journalPositionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List open positions",
	Args:  cobra.NoArgs,
	RunE:  runJournalPositions,
}

var journalOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders",
	Args:  cobra.NoArgs,
	RunE:  runJournalOrders,
}

var journalReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute performance metrics from journaled trades and snapshots",
	Args:  cobra.NoArgs,
	RunE:  runJournalReport,
}

var (
	journalDBPath   string
	journalDSN      string
	journalFrom     string
	journalTo       string
	journalStrategy string
	journalCapital  float64
	journalCurrency string
	journalRiskFree float64
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd, journalTradesCmd, journalTodayCmd, journalDayCmd,
		journalSnapshotsCmd, journalPositionsCmd, journalOrdersCmd, journalReportCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./papertrader.db", "path to SQLite journal DB")
	journalCmd.PersistentFlags().StringVar(&journalDSN, "dsn", "", "Postgres DSN; overrides --db")

	for _, c := range []*cobra.Command{journalTradesCmd, journalSnapshotsCmd, journalReportCmd} {
		c.Flags().StringVar(&journalFrom, "from", "", "start date YYYY-MM-DD (default: all)")
		c.Flags().StringVar(&journalTo, "to", "", "end date YYYY-MM-DD, inclusive (default: today)")
	}
	journalReportCmd.Flags().StringVar(&journalStrategy, "strategy", "", "only trades of this strategy id")
	journalReportCmd.Flags().Float64Var(&journalCapital, "capital", 100, "initial capital of the run")
	journalReportCmd.Flags().StringVar(&journalCurrency, "currency", "USD", "currency for display")
	journalReportCmd.Flags().Float64Var(&journalRiskFree, "risk-free", 0.04, "annual risk free rate for Sharpe")
}

func openJournalStore(cmd *cobra.Command) (journal.Store, error) {
	j, err := openStore(cmd.Context(), journalDBPath, journalDSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournalStore(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTrade(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	start, end, err := rangeBounds(time.Local, journalFrom, journalTo)
	if err != nil {
		return err
	}
	return printTrades(cmd, start, end)
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	loc := time.Local
	start, end, err := dayBounds(loc, time.Now().In(loc).Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	return printTrades(cmd, start, end)
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	start, end, err := dayBounds(time.Local, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	return printTrades(cmd, start, end)
}

func printTrades(cmd *cobra.Command, start, end time.Time) error {
	j, err := openJournalStore(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListTradesClosedBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalSnapshots(cmd *cobra.Command, args []string) error {
	start, end, err := rangeBounds(time.Local, journalFrom, journalTo)
	if err != nil {
		return err
	}
	j, err := openJournalStore(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	snaps, err := j.ListSnapshotsBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query snapshots: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatSnapshotsOrg(snaps))
	return nil
}

func runJournalPositions(cmd *cobra.Command, args []string) error {
	j, err := openJournalStore(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	positions, err := j.ListPositions(cmd.Context())
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "| Strategy | Symbol | Qty | Avg Price | Cost Basis | Opened |")
	fmt.Fprintln(out, "|----------+--------+-----+-----------+------------+--------|")
	for _, p := range positions {
		fmt.Fprintf(out, "| %s | %s | %s | %s | %s | %s |\n",
			p.StrategyID, p.Symbol, p.Quantity, p.AveragePrice.StringFixed(4),
			p.CostBasis().StringFixed(2), p.OpenedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runJournalOrders(cmd *cobra.Command, args []string) error {
	j, err := openJournalStore(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	orders, err := j.ListOrders(cmd.Context())
	if err != nil {
		return fmt.Errorf("query orders: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "| Order | Strategy | Symbol | Side | Qty | Status | Fill | Created |")
	fmt.Fprintln(out, "|-------+----------+--------+------+-----+--------+------+---------|")
	for _, o := range orders {
		fill := "-"
		if !o.FillPrice.IsZero() {
			fill = o.FillPrice.StringFixed(4)
		}
		status := string(o.Status)
		if o.RejectReason != "" {
			status += ": " + o.RejectReason
		}
		fmt.Fprintf(out, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			o.ID, o.StrategyID, o.Symbol, o.Side, o.Quantity, status, fill,
			o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runJournalReport(cmd *cobra.Command, args []string) error {
	start, end, err := rangeBounds(time.Local, journalFrom, journalTo)
	if err != nil {
		return err
	}
	j, err := openJournalStore(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := j.ListTradesClosedBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	snaps, err := j.ListSnapshotsBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query snapshots: %w", err)
	}

	m, err := report.Compute(report.Input{
		StrategyID:     journalStrategy,
		InitialCapital: decimal.NewFromFloat(journalCapital),
		Trades:         trades,
		Snapshots:      snaps,
		RiskFreeRate:   journalRiskFree,
	})
	if err != nil {
		return err
	}
	report.Print(cmd.OutOrStdout(), m, journalCurrency)
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}

// rangeBounds turns inclusive dates into [start, end). An empty from means
// the beginning of time and an empty to means the end of today.
func rangeBounds(loc *time.Location, from, to string) (time.Time, time.Time, error) {
	var start time.Time
	if from != "" {
		s, _, err := dayBounds(loc, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
		start = s
	}
	if to == "" {
		to = time.Now().In(loc).Format("2006-01-02")
	}
	_, end, err := dayBounds(loc, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
	}
	return start, end, nil
}
