package market

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rustyeddy/papertrader/internal/backoff"
)

// Compile-time interface check.
var _ Feed = (*AlpacaFeed)(nil)

// alpacaClient is the part of *marketdata.Client the feed uses.
type alpacaClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// AlpacaFeed reads quotes and daily bars from the Alpaca market data API.
type AlpacaFeed struct {
	client   alpacaClient
	feed     marketdata.Feed
	attempts int
	delay    time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// NewAlpacaFeed creates a feed using the given credentials. An empty dataURL
// uses the SDK default endpoint. Bars come from the free IEX feed.
func NewAlpacaFeed(apiKey, apiSecret, dataURL string) *AlpacaFeed {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return newAlpacaFeed(marketdata.NewClient(opts))
}

func newAlpacaFeed(c alpacaClient) *AlpacaFeed {
	return &AlpacaFeed{
		client:   c,
		feed:     marketdata.IEX,
		attempts: 3,
		delay:    500 * time.Millisecond,
		now:      time.Now,
		log:      slog.Default().With("feed", "alpaca"),
	}
}

// History returns daily bars for symbol in [start, end].
func (f *AlpacaFeed) History(ctx context.Context, symbol string, start, end time.Time) ([]Candle, error) {
	symbol = strings.ToUpper(symbol)

	var bars []marketdata.Bar
	err := backoff.Retry(ctx, f.attempts, f.delay, func() error {
		var err error
		bars, err = f.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
			Feed:      f.feed,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}

	out := make([]Candle, 0, len(bars))
	for _, b := range bars {
		out = append(out, Candle{
			Symbol: symbol,
			Time:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	return out, nil
}

// Quote combines the latest trade with the last two daily bars. If the
// latest trade is unavailable the last close is used.
func (f *AlpacaFeed) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(symbol)
	now := f.now()

	bars, err := f.History(ctx, symbol, now.AddDate(0, 0, -7), now)
	if err != nil {
		return Quote{}, err
	}
	if len(bars) == 0 {
		return Quote{}, fmt.Errorf("alpaca quote %s: %w", symbol, ErrNoData)
	}

	last := bars[len(bars)-1]
	var prev *Candle
	if len(bars) > 1 {
		prev = &bars[len(bars)-2]
	}

	price := 0.0
	at := last.Time
	trade, err := f.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{Feed: f.feed})
	if err != nil {
		f.log.Debug("latest trade unavailable, using last close", "symbol", symbol, "error", err)
	} else if trade != nil && trade.Price > 0 {
		price = trade.Price
		at = trade.Timestamp
	}

	return quoteFromBars(symbol, last, prev, price, at), nil
}
