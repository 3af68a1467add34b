package strategies

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/sentiment"
)

const (
	defaultThreshold = 0.7
	baseConfidence   = 0.7
	maxConfidence    = 0.95
	sentimentBoost   = 0.1
	boostedCap       = 0.99
	sentimentCutoff  = 0.3
)

// averager returns a moving average series aligned to the tail of closes.
type averager func(closes []float64, period int) ([]float64, error)

// crossover is the shared fast/slow moving average crossover rule.
type crossover struct {
	id, name   string
	label      string // "SMA" or "EMA"
	fast, slow int
	threshold  float64
	avg        averager
	log        *slog.Logger
}

func (c *crossover) ID() string   { return c.id }
func (c *crossover) Name() string { return c.name }

// Analyze signals BUY when the fast average crosses above the slow one on
// the latest bar and SELL when it crosses below. Confidence grows with the
// gap between the averages, and sentiment agreeing with the direction adds
// a boost.
func (c *crossover) Analyze(symbol string, quote market.Quote, history []market.Candle, s *sentiment.Reading) (Signal, bool) {
	if len(history) < c.slow+2 {
		c.log.Debug("insufficient history", "strategy", c.id, "symbol", symbol,
			"need", c.slow+2, "have", len(history))
		return Signal{}, false
	}

	closes := market.Closes(history)
	fast, err := c.avg(closes, c.fast)
	if err != nil {
		return Signal{}, false
	}
	slow, err := c.avg(closes, c.slow)
	if err != nil {
		return Signal{}, false
	}
	prevF, currF := fast[len(fast)-2], fast[len(fast)-1]
	prevS, currS := slow[len(slow)-2], slow[len(slow)-1]

	score, hasScore := s.Score()

	sig := Signal{
		StrategyID: c.id,
		Symbol:     symbol,
		Action:     Hold,
		Time:       quote.Time,
	}
	if sig.Time.IsZero() {
		sig.Time = history[len(history)-1].Time
	}

	switch {
	case prevF <= prevS && currF > currS:
		sig.Action = Buy
		sig.Confidence = confidence((currF - currS) / currS)
		sig.Reason = fmt.Sprintf("Bullish %s crossover: %d-day %s crossed above %d-day %s",
			c.label, c.fast, c.label, c.slow, c.label)
		if hasScore && score > sentimentCutoff {
			sig.Confidence = math.Min(sig.Confidence+sentimentBoost, boostedCap)
			sig.Reason += " (positive sentiment)"
		}

	case prevF >= prevS && currF < currS:
		sig.Action = Sell
		sig.Confidence = confidence((currS - currF) / currF)
		sig.Reason = fmt.Sprintf("Bearish %s crossover: %d-day %s crossed below %d-day %s",
			c.label, c.fast, c.label, c.slow, c.label)
		if hasScore && score < -sentimentCutoff {
			sig.Confidence = math.Min(sig.Confidence+sentimentBoost, boostedCap)
			sig.Reason += " (negative sentiment)"
		}
	}

	if sig.Action == Hold || sig.Confidence < c.threshold {
		return Signal{}, false
	}
	c.log.Info("signal generated", "strategy", c.id, "symbol", symbol,
		"action", sig.Action, "confidence", fmt.Sprintf("%.2f", sig.Confidence))
	return sig, true
}

func confidence(magnitude float64) float64 {
	return math.Min(baseConfidence+math.Abs(magnitude)*100, maxConfidence)
}

func newCrossover(id, name, label string, p Params, defFast, defSlow int, avg averager) *crossover {
	c := &crossover{
		id:        id,
		name:      name,
		label:     label,
		fast:      p.ShortWindow,
		slow:      p.LongWindow,
		threshold: p.ConfidenceThreshold,
		avg:       avg,
		log:       slog.Default(),
	}
	if c.fast <= 0 {
		c.fast = defFast
	}
	if c.slow <= 0 {
		c.slow = defSlow
	}
	if c.threshold <= 0 {
		c.threshold = defaultThreshold
	}
	return c
}

