package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/market"
	"github.com/spf13/cobra"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage the local daily bar store",
	Long: `Download, import and list daily bars kept as parquet files under
<dir>/<SYMBOL>/<YYYY>.parquet. The store feeds replayed sessions
(market.source: parquet).

Examples:
  papertrader data fetch --symbols AAPL,MSFT --days 365 --dir data
  papertrader data import --csv bars.csv --dir data
  papertrader data symbols --dir data`,
}

var dataFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download daily bars from Alpaca into the parquet store",
	Args:  cobra.NoArgs,
	RunE:  runDataFetch,
}

var dataImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import bars from a CSV file (time,symbol,open,high,low,close[,volume])",
	Args:  cobra.NoArgs,
	RunE:  runDataImport,
}

var dataSymbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List symbols in the parquet store",
	Args:  cobra.NoArgs,
	RunE:  runDataSymbols,
}

var (
	dataSymbols string
	dataDays    int
	dataDir     string
	dataCSV     string
	dataKey     string
	dataSecret  string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataFetchCmd, dataImportCmd, dataSymbolsCmd)

	dataCmd.PersistentFlags().StringVar(&dataDir, "dir", "data", "parquet store directory")

	dataFetchCmd.Flags().StringVar(&dataSymbols, "symbols", "AAPL,GOOGL,MSFT", "comma separated symbols")
	dataFetchCmd.Flags().IntVar(&dataDays, "days", 365, "calendar days of history to fetch")
	dataFetchCmd.Flags().StringVar(&dataKey, "key", "", "Alpaca API key (default $APCA_API_KEY_ID)")
	dataFetchCmd.Flags().StringVar(&dataSecret, "secret", "", "Alpaca API secret (default $APCA_API_SECRET_KEY)")

	dataImportCmd.Flags().StringVar(&dataCSV, "csv", "", "CSV file to import (required)")
	_ = dataImportCmd.MarkFlagRequired("csv")
}

func runDataFetch(cmd *cobra.Command, args []string) error {
	symbols := splitSymbols(dataSymbols)
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols")
	}
	if dataDays <= 0 {
		return fmt.Errorf("--days must be positive")
	}

	creds := config.Default()
	config.ApplyEnvOverrides(creds)
	if dataKey == "" {
		dataKey = creds.Alpaca.APIKey
	}
	if dataSecret == "" {
		dataSecret = creds.Alpaca.APISecret
	}

	feed := market.NewAlpacaFeed(dataKey, dataSecret, creds.Alpaca.DataURL)
	store := market.NewParquetStore(dataDir)

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -dataDays)
	for _, sym := range symbols {
		candles, err := feed.History(cmd.Context(), sym, start, end)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", sym, err)
		}
		if err := store.WriteCandles(cmd.Context(), candles); err != nil {
			return fmt.Errorf("store %s: %w", sym, err)
		}
		slog.Info("stored bars", "symbol", sym, "bars", len(candles), "dir", dataDir)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bars\n", sym, len(candles))
	}
	return nil
}

func runDataImport(cmd *cobra.Command, args []string) error {
	candles, err := market.ReadCSVFile(dataCSV)
	if err != nil {
		return err
	}
	store := market.NewParquetStore(dataDir)
	for sym, cs := range market.BySymbol(candles) {
		if err := store.WriteCandles(cmd.Context(), cs); err != nil {
			return fmt.Errorf("store %s: %w", sym, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bars\n", sym, len(cs))
	}
	return nil
}

func runDataSymbols(cmd *cobra.Command, args []string) error {
	syms, err := market.NewParquetStore(dataDir).Symbols()
	if err != nil {
		return err
	}
	for _, s := range syms {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	return nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
