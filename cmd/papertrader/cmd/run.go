package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/internal/logging"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/rustyeddy/papertrader/report"
	"github.com/rustyeddy/papertrader/session"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a paper trading session from a config file",
	Long: `Run a paper trading session using settings from a configuration file.

Each iteration fetches quotes and sentiment, runs every configured strategy
over every symbol, executes the resulting orders against the ledger and
records a snapshot. With market.source parquet or csv the session replays
recorded bars, one bar per iteration.

Example:
  papertrader run -f papertrader.yaml
  papertrader run -f replay.yaml --iterations 200 --interval 0s --report run.org`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runConfigPath string
	runIterations int
	runInterval   string
	runFrom       string
	runTo         string
	runReport     string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().IntVar(&runIterations, "iterations", 0, "override run.iterations")
	runCmd.Flags().StringVar(&runInterval, "interval", "", "override run.interval, e.g. 30s")
	runCmd.Flags().StringVar(&runFrom, "from", "", "replay start date YYYY-MM-DD (parquet source)")
	runCmd.Flags().StringVar(&runTo, "to", "", "replay end date YYYY-MM-DD (parquet source, default today)")
	runCmd.Flags().StringVar(&runReport, "report", "", "write an Org-mode report to this path")
	_ = runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runIterations > 0 {
		cfg.Run.Iterations = runIterations
	}
	if runInterval != "" {
		cfg.Run.Interval = runInterval
	}
	if !cmd.Flags().Changed("log-level") {
		logLevel = cfg.Logging.Level
	}
	if !cmd.Flags().Changed("log-format") {
		logFormat = cfg.Logging.Format
	}
	out, logFile := logging.File{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		MaxBackups: cfg.Logging.MaxBackups,
	}.Writer(os.Stderr)
	defer logFile.Close()
	log := logging.Setup(logLevel, logFormat, out)

	interval, err := cfg.Run.Wait()
	if err != nil {
		return fmt.Errorf("run.interval: %w", err)
	}
	from, to, err := replayWindow(cfg, runFrom, runTo)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := openSources(ctx, cfg, from, to)
	if err != nil {
		return fmt.Errorf("market data: %w", err)
	}
	opts := []ledger.Option{ledger.WithLogger(log)}
	if src.clock != nil {
		opts = append(opts, ledger.WithClock(src.clock))
	}
	l, err := ledger.New(cfg.LedgerConfig(), opts...)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	sent, err := openSentiment(cfg.Sentiment)
	if err != nil {
		return fmt.Errorf("sentiment: %w", err)
	}
	producers, err := openStrategies(cfg.Strategies)
	if err != nil {
		return fmt.Errorf("strategies: %w", err)
	}

	j, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	runner := &session.Runner{
		Ledger:     l,
		Prices:     src.prices,
		History:    src.history,
		Sentiment:  sent,
		Strategies: producers,
		Journal:    j,
		Log:        log,
		Options: session.Options{
			Symbols:         cfg.Market.Symbols,
			Iterations:      cfg.Run.Iterations,
			Interval:        interval,
			HistoryDays:     cfg.Market.HistoryDays,
			MaxPositionSize: decimal.NewFromFloat(cfg.PaperTrading.MaxPositionSize),
		},
	}
	if src.replay != nil {
		// bars are replayed back to back
		runner.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Running session with config: %s\n", runConfigPath)
	sum, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	totals := l.Totals()
	m, err := report.Compute(report.Input{
		InitialCapital: l.InitialCapital(),
		Trades:         l.Trades(),
		Snapshots:      runner.Snapshots(),
		Commissions:    &totals.Commissions,
		Slippage:       &totals.Slippage,
		RiskFreeRate:   cfg.Performance.RiskFreeRate,
	})
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	report.Print(cmd.OutOrStdout(), m, cfg.PaperTrading.Currency)

	if runReport != "" {
		names := make([]string, len(producers))
		for i, p := range producers {
			names[i] = p.ID()
		}
		runID := id.Prefixed("RUN")
		created, err := id.Time(runID)
		if err != nil {
			return fmt.Errorf("run id: %w", err)
		}
		r := report.RunReport{
			RunID:      runID,
			Created:    created,
			Source:     cfg.Market.Source,
			Currency:   cfg.PaperTrading.Currency,
			Symbols:    cfg.Market.Symbols,
			Strategies: names,
			Iterations: sum.Iterations,
			Metrics:    m,
		}
		if err := report.WriteOrgFile(runReport, r); err != nil {
			return err
		}
		slog.Info("report written", "path", runReport)
	}

	switch cfg.Journal.Type {
	case "csv":
		fmt.Fprintf(cmd.OutOrStdout(), "\nJournal saved to:\n  - %s\n", strings.Join([]string{
			cfg.Journal.OrdersFile, cfg.Journal.PositionsFile, cfg.Journal.TradesFile, cfg.Journal.SnapshotsFile,
		}, "\n  - "))
	case "sqlite":
		fmt.Fprintf(cmd.OutOrStdout(), "\nJournal saved to: %s\n", cfg.Journal.DBPath)
	}
	return nil
}

// replayWindow resolves --from/--to. The default window covers the warmup
// history plus one calendar day per iteration, doubled for weekends.
func replayWindow(cfg *config.Config, from, to string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
		end = t.Add(24*time.Hour - time.Nanosecond)
	}
	start := end.AddDate(0, 0, -2*(cfg.Market.HistoryDays+cfg.Run.Iterations))
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
		start = t
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("replay window is empty: %s .. %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return start, end, nil
}
