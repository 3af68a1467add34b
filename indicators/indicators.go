// Package indicators provides technical analysis indicators over daily candles.
package indicators

import "github.com/rustyeddy/papertrader/market"

// Indicator computes a single streaming value from candles.
// It is deterministic and safe to use in live and replayed runs.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed candle.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful.
	Ready() bool

	// Value returns the current value, 0 before Ready.
	Value() float64
}

// Series feeds closes through a fresh indicator built by mk and returns the
// values once warm. The result is aligned to the tail of closes.
func Series(mk func() Indicator, closes []float64) []float64 {
	ind := mk()
	out := make([]float64, 0, len(closes))
	for _, c := range closes {
		ind.Update(market.Candle{Close: c})
		if ind.Ready() {
			out = append(out, ind.Value())
		}
	}
	return out
}
