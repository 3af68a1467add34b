package cmd

import (
	"os"

	"github.com/rustyeddy/papertrader/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "papertrader",
	Short: "A paper trading portfolio ledger for equities",
	Long: `Papertrader simulates trading with virtual money against real or recorded
market prices.

It provides tools for:
  - Running strategy driven paper trading sessions
  - Exact decimal accounting of cash, positions and round trip trades
  - Commission and slippage modeling
  - Journaling orders, positions, trades and snapshots to SQLite, Postgres or CSV
  - Downloading daily bars from Alpaca into a local parquet store
  - Performance reports as text or Org-mode`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logLevel, logFormat, os.Stderr)
	},
}

var (
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
}
