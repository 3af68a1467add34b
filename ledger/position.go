package ledger

import "github.com/shopspring/decimal"

// applyFill moves the position book for a filled order. It returns the
// position after the fill (nil when closed), whether it closed, and the trade
// recorded on closure.
func (l *Ledger) applyFill(o *Order) (*Position, bool, *Trade) {
	key := o.Key()
	pos, ok := l.positions[key]

	switch o.Side {
	case Long:
		if !ok {
			pos = &Position{
				Symbol:       o.Symbol,
				StrategyID:   o.StrategyID,
				Side:         Long,
				Quantity:     o.Quantity,
				AveragePrice: o.FillPrice,
				OpenedAt:     o.FilledAt,
			}
			l.positions[key] = pos
		} else {
			pos.AveragePrice = weightedAvg(pos.AveragePrice, pos.Quantity, o.FillPrice, o.Quantity)
			pos.Quantity = pos.Quantity.Add(o.Quantity)
		}
		cp := *pos
		return &cp, false, nil

	case Short:
		if !ok {
			// executeLocked rejects these; reaching here means a bug upstream.
			l.log.Warn("fill against missing position ignored", "order_id", o.ID, "key", key.String())
			return nil, false, nil
		}
		closedQty := pos.Quantity
		pos.Quantity = pos.Quantity.Sub(o.Quantity)
		if pos.Quantity.IsPositive() {
			cp := *pos
			return &cp, false, nil
		}
		t := l.closePosition(o, *pos, closedQty)
		delete(l.positions, key)
		l.log.Info("position closed", "strategy", o.StrategyID, "symbol", o.Symbol)
		return nil, true, t
	}
	return nil, false, nil
}

// weightedAvg returns (avg*qty + price*add) / (qty+add).
func weightedAvg(avg, qty, price, add decimal.Decimal) decimal.Decimal {
	total := qty.Add(add)
	if total.IsZero() {
		return decimal.Zero
	}
	return avg.Mul(qty).Add(price.Mul(add)).Div(total)
}
