package ledger

import (
	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/shopspring/decimal"
)

// closePosition records the round trip ended by exit. pos is the position
// with its pre-close average price; closedQty is the quantity held before
// the exit fill.
//
// The entry is the most recent FILLED buy on the same strategy and symbol.
// With several buys averaged into one position this attributes fees from that
// last buy only; the cost basis still comes from the average price.
func (l *Ledger) closePosition(exit *Order, pos Position, closedQty decimal.Decimal) *Trade {
	entry := l.lastEntry(exit)
	if entry == nil {
		// Unreachable through ExecuteOrder: a sell needs an open position,
		// and every open position came from a filled buy.
		l.log.Warn("no entry order for closed position, trade not recorded",
			"exit_order_id", exit.ID, "strategy", exit.StrategyID, "symbol", exit.Symbol)
		return nil
	}

	gross := exit.FillPrice.Sub(pos.AveragePrice).Mul(closedQty)
	commission := entry.Commission.Add(exit.Commission)
	slippage := entry.Slippage.Add(exit.Slippage)
	net := gross.Sub(commission).Sub(slippage)

	pct := decimal.Zero
	if basis := pos.AveragePrice.Mul(closedQty); !basis.IsZero() {
		pct = gross.Div(basis).Mul(hundred)
	}

	t := Trade{
		ID:              id.Prefixed("TRADE"),
		StrategyID:      exit.StrategyID,
		Symbol:          exit.Symbol,
		EntryOrderID:    entry.ID,
		EntryPrice:      pos.AveragePrice,
		EntryQuantity:   closedQty,
		EntryTime:       entry.FilledAt,
		ExitOrderID:     exit.ID,
		ExitPrice:       exit.FillPrice,
		ExitQuantity:    closedQty,
		ExitTime:        exit.FilledAt,
		GrossPnL:        gross,
		NetPnL:          net,
		PnLPercent:      pct,
		TotalCommission: commission,
		TotalSlippage:   slippage,
	}
	l.trades = append(l.trades, t)

	l.log.Info("trade closed",
		"trade_id", t.ID,
		"symbol", t.Symbol,
		"gross_pnl", gross.StringFixed(2),
		"net_pnl", net.StringFixed(2),
		"pnl_pct", pct.StringFixed(2))
	return &t
}

func (l *Ledger) lastEntry(exit *Order) *Order {
	for i := len(l.orders) - 1; i >= 0; i-- {
		o := l.orders[i]
		if o.Status == StatusFilled && o.Side == Long &&
			o.StrategyID == exit.StrategyID && o.Symbol == exit.Symbol {
			return o
		}
	}
	return nil
}
