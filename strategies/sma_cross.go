package strategies

import "github.com/rustyeddy/papertrader/indicators"

// SMACross trades simple moving average crossovers. Defaults are a 20 day
// fast and 50 day slow average with a 0.7 confidence threshold.
type SMACross struct {
	*crossover
}

// NewSMACross builds an SMA crossover producer.
func NewSMACross(id string, p Params) *SMACross {
	return &SMACross{newCrossover(id, "SMA Crossover Strategy", "SMA", p, 20, 50, indicators.SMA)}
}
