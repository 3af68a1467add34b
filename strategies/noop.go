package strategies

import (
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/sentiment"
)

// Noop never signals.
type Noop struct {
	StrategyID string
}

func (n Noop) ID() string { return n.StrategyID }
func (Noop) Name() string { return "No-op Strategy" }

func (Noop) Analyze(string, market.Quote, []market.Candle, *sentiment.Reading) (Signal, bool) {
	return Signal{}, false
}
