package ledger

import "github.com/shopspring/decimal"

// Snapshot values the ledger at prices. Positions with no price are left out
// of PositionsValue. The peak watermark is raised if TotalValue exceeds it.
func (l *Ledger) Snapshot(prices map[string]decimal.Decimal) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	for sym, p := range prices {
		if p.IsPositive() {
			l.marks[sym] = p
		}
	}

	positionsValue := decimal.Zero
	for _, pos := range l.positions {
		if p, ok := prices[pos.Symbol]; ok {
			positionsValue = positionsValue.Add(pos.Quantity.Mul(p))
		}
	}
	total := l.cash.Add(positionsValue)
	if total.GreaterThan(l.peak) {
		l.peak = total
	}

	pnl := total.Sub(l.cfg.InitialCapital)
	return Snapshot{
		Time:            l.now(),
		Cash:            l.cash,
		PositionsValue:  positionsValue,
		TotalValue:      total,
		TotalPnL:        pnl,
		TotalPnLPercent: pnl.Div(l.cfg.InitialCapital).Mul(hundred),
		NumPositions:    len(l.positions),
	}
}

// MaxDrawdown returns the percentage drop of the current value from the peak,
// as a value <= 0. Positions are marked at the last price seen by Snapshot,
// or at their average price if none was seen.
func (l *Ledger) MaxDrawdown() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.peak.IsPositive() {
		return decimal.Zero
	}
	current := l.cash
	for _, pos := range l.positions {
		mark, ok := l.marks[pos.Symbol]
		if !ok {
			mark = pos.AveragePrice
		}
		current = current.Add(pos.Quantity.Mul(mark))
	}
	dd := current.Sub(l.peak).Div(l.peak).Mul(hundred)
	return decimal.Min(dd, decimal.Zero)
}
