package strategies

import "github.com/rustyeddy/papertrader/indicators"

// EMACross trades exponential moving average crossovers. It reacts faster
// than SMACross to recent closes. Defaults are 10 and 30 days.
type EMACross struct {
	*crossover
}

// NewEMACross builds an EMA crossover producer.
func NewEMACross(id string, p Params) *EMACross {
	return &EMACross{newCrossover(id, "EMA Crossover Strategy", "EMA", p, 10, 30, indicators.EMA)}
}
