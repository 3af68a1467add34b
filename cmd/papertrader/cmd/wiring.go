package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/sentiment"
	"github.com/rustyeddy/papertrader/strategies"
)

// sources is what a session reads prices and history from. clock is set
// for replayed data so the ledger stamps records with bar time.
type sources struct {
	prices  market.PriceSource
	history market.HistorySource
	clock   func() time.Time
	replay  *market.ReplayFeed
}

func openJournal(ctx context.Context, jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.OrdersFile, jc.PositionsFile, jc.TradesFile, jc.SnapshotsFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	case "postgres":
		return journal.NewPostgres(ctx, jc.DSN)
	case "none", "":
		return journal.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", jc.Type)
	}
}

// openStore opens a queryable journal: Postgres when dsn is set, otherwise
// the SQLite file at dbPath.
func openStore(ctx context.Context, dbPath, dsn string) (journal.Store, error) {
	if dsn != "" {
		return journal.NewPostgres(ctx, dsn)
	}
	return journal.NewSQLite(dbPath)
}

func openSources(ctx context.Context, cfg *config.Config, from, to time.Time) (*sources, error) {
	mc := cfg.Market

	switch mc.Source {
	case "alpaca":
		ttl, err := mc.TTL()
		if err != nil {
			return nil, err
		}
		feed := market.NewAlpacaFeed(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
		return &sources{prices: market.NewCache(feed, ttl), history: feed}, nil

	case "parquet":
		store := market.NewParquetStore(mc.DataDir)
		feed, err := market.LoadReplayFeed(ctx, store, mc.Symbols, from, to, warmupBars(mc.HistoryDays))
		if err != nil {
			return nil, err
		}
		return replaySources(feed), nil

	case "csv":
		candles, err := market.ReadCSVFile(mc.CSVFile)
		if err != nil {
			return nil, err
		}
		feed := market.NewReplayFeed(market.BySymbol(candles), warmupBars(mc.HistoryDays))
		return replaySources(feed), nil

	default:
		return nil, fmt.Errorf("unknown market source %q", mc.Source)
	}
}

func replaySources(feed *market.ReplayFeed) *sources {
	return &sources{prices: feed, history: feed, clock: feed.Now, replay: feed}
}

// warmupBars converts calendar days of history into trading day bars.
func warmupBars(historyDays int) int {
	return historyDays * 5 / 7
}

func openSentiment(sc config.SentimentConfig) (sentiment.Provider, error) {
	if !sc.Enabled {
		return nil, nil
	}
	switch sc.Source {
	case "static":
		return sentiment.Static{Value: sc.StaticValue}, nil
	case "fear_greed":
		ttl, err := sc.CacheTTL()
		if err != nil {
			return nil, err
		}
		return sentiment.NewCached(sentiment.NewFearGreedClient(sc.URL), ttl), nil
	default:
		return nil, fmt.Errorf("unknown sentiment source %q", sc.Source)
	}
}

func openStrategies(scs []config.StrategyConfig) ([]strategies.SignalProducer, error) {
	out := make([]strategies.SignalProducer, 0, len(scs))
	for _, sc := range scs {
		sp, err := strategies.ByName(sc.Name, sc.ID, strategies.Params{
			ShortWindow:         sc.ShortWindow,
			LongWindow:          sc.LongWindow,
			ConfidenceThreshold: sc.ConfidenceThreshold,
		})
		if err != nil {
			return nil, err
		}
		slog.Debug("strategy loaded", "id", sp.ID(), "name", sp.Name())
		out = append(out, sp)
	}
	return out, nil
}
