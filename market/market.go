// Package market supplies prices to the paper trader: live quotes, daily
// bar history and the stores and caches around them.
package market

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoData is returned when a source has nothing for a symbol.
var ErrNoData = errors.New("no market data")

// Candle is one OHLCV bar.
type Candle struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Quote is the current state of a symbol.
type Quote struct {
	Symbol string
	Time   time.Time
	Price  decimal.Decimal

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64

	DayChange        float64
	DayChangePercent float64
}

// PriceSource returns the current quote for a symbol.
type PriceSource interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// HistorySource returns daily candles in [start, end], oldest first.
type HistorySource interface {
	History(ctx context.Context, symbol string, start, end time.Time) ([]Candle, error)
}

// Feed is a source of both quotes and history.
type Feed interface {
	PriceSource
	HistorySource
}

// Closes returns the close of every candle.
func Closes(cs []Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

// quoteFromBars builds a quote from the latest bar and the one before it.
// price overrides the last close when positive.
func quoteFromBars(symbol string, last Candle, prev *Candle, price float64, at time.Time) Quote {
	if price <= 0 {
		price = last.Close
	}
	q := Quote{
		Symbol: symbol,
		Time:   at,
		Price:  decimal.NewFromFloat(price),
		Open:   last.Open,
		High:   last.High,
		Low:    last.Low,
		Close:  last.Close,
		Volume: last.Volume,
	}
	if prev != nil && prev.Close != 0 {
		q.DayChange = price - prev.Close
		q.DayChangePercent = q.DayChange / prev.Close * 100
	}
	return q
}
