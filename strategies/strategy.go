// Package strategies turns market data and sentiment into trading signals.
package strategies

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/sentiment"
)

// Action is what a signal asks for.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
	Hold Action = "HOLD"
)

// Signal is a producer's recommendation for one symbol.
type Signal struct {
	StrategyID string
	Symbol     string
	Action     Action
	Confidence float64 // [0, 1]
	Reason     string
	Time       time.Time
}

// SignalProducer analyzes one symbol at a time. Analyze returns ok=false
// when there is nothing to act on, including HOLD and low confidence.
type SignalProducer interface {
	ID() string
	Name() string
	Analyze(symbol string, quote market.Quote, history []market.Candle, s *sentiment.Reading) (Signal, bool)
}

// Params configures the built in producers. Zero values take each
// producer's defaults.
type Params struct {
	ShortWindow         int
	LongWindow          int
	ConfidenceThreshold float64
}

// ByName builds a producer. id defaults to "<name>_v1".
func ByName(name, id string, p Params) (SignalProducer, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if id == "" {
		id = strings.ReplaceAll(key, "-", "_") + "_v1"
	}
	switch key {
	case "noop", "none":
		return Noop{StrategyID: id}, nil

	case "sma_crossover", "sma-crossover", "sma-cross":
		return NewSMACross(id, p), nil

	case "ema_crossover", "ema-crossover", "ema-cross", "emacross":
		return NewEMACross(id, p), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, sma_crossover, ema_crossover)", name)
	}
}
