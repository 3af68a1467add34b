package journal

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/shopspring/decimal"
)

// Statements are written with ? placeholders; Postgres rebinds them.
const (
	upsertOrderSQL = `
		INSERT INTO orders
		(order_id, strategy_id, symbol, order_type, side, quantity, limit_price, status,
		 reject_reason, fill_price, commission, slippage, created_at, filled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id) DO UPDATE SET
			status = excluded.status,
			reject_reason = excluded.reject_reason,
			fill_price = excluded.fill_price,
			commission = excluded.commission,
			slippage = excluded.slippage,
			filled_at = excluded.filled_at`

	upsertPositionSQL = `
		INSERT INTO positions
		(strategy_id, symbol, side, quantity, average_price, opened_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (strategy_id, symbol) DO UPDATE SET
			side = excluded.side,
			quantity = excluded.quantity,
			average_price = excluded.average_price,
			opened_at = excluded.opened_at`

	deletePositionSQL = `DELETE FROM positions WHERE strategy_id = ? AND symbol = ?`

	insertTradeSQL = `
		INSERT INTO trades
		(trade_id, strategy_id, symbol, entry_order_id, entry_price, entry_quantity, entry_time,
		 exit_order_id, exit_price, exit_quantity, exit_time, gross_pnl, net_pnl, pnl_percent,
		 total_commission, total_slippage, is_open)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	upsertSnapshotSQL = `
		INSERT INTO snapshots
		(timestamp, cash, positions_value, total_value, total_pnl, total_pnl_percent, num_positions)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (timestamp) DO UPDATE SET
			cash = excluded.cash,
			positions_value = excluded.positions_value,
			total_value = excluded.total_value,
			total_pnl = excluded.total_pnl,
			total_pnl_percent = excluded.total_pnl_percent,
			num_positions = excluded.num_positions`

	tradeColumns = `trade_id, strategy_id, symbol, entry_order_id, entry_price, entry_quantity, entry_time,
		exit_order_id, exit_price, exit_quantity, exit_time, gross_pnl, net_pnl, pnl_percent,
		total_commission, total_slippage, is_open`

	getTradeSQL = `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = ?`

	listTradesSQL = `SELECT ` + tradeColumns + `
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC, trade_id ASC`

	listSnapshotsSQL = `
		SELECT timestamp, cash, positions_value, total_value, total_pnl, total_pnl_percent, num_positions
		FROM snapshots
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC`

	listPositionsSQL = `
		SELECT strategy_id, symbol, side, quantity, average_price, opened_at
		FROM positions
		ORDER BY strategy_id, symbol`

	listOrdersSQL = `
		SELECT order_id, strategy_id, symbol, order_type, side, quantity, limit_price, status,
			reject_reason, fill_price, commission, slippage, created_at, filled_at
		FROM orders
		ORDER BY created_at ASC, order_id ASC`
)

// rebind turns ? placeholders into $1, $2, ...
func rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func orderArgs(o ledger.Order) []any {
	var limit decimal.NullDecimal
	if o.LimitPrice != nil {
		limit = decimal.NewNullDecimal(*o.LimitPrice)
	}
	return []any{
		o.ID, o.StrategyID, o.Symbol, string(o.Type), string(o.Side), o.Quantity, limit,
		string(o.Status), o.RejectReason, o.FillPrice, o.Commission, o.Slippage,
		o.CreatedAt.UTC(), nullTime(o.FilledAt),
	}
}

func scanOrder(s scanner) (ledger.Order, error) {
	var (
		o                 ledger.Order
		typ, side, status string
		limit             decimal.NullDecimal
		filled            sql.NullTime
	)
	err := s.Scan(&o.ID, &o.StrategyID, &o.Symbol, &typ, &side, &o.Quantity, &limit,
		&status, &o.RejectReason, &o.FillPrice, &o.Commission, &o.Slippage, &o.CreatedAt, &filled)
	if err != nil {
		return ledger.Order{}, err
	}
	o.Type, o.Side, o.Status = ledger.OrderType(typ), ledger.Side(side), ledger.Status(status)
	if limit.Valid {
		lp := limit.Decimal
		o.LimitPrice = &lp
	}
	if filled.Valid {
		o.FilledAt = filled.Time.UTC()
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}

func positionArgs(p ledger.Position) []any {
	return []any{p.StrategyID, p.Symbol, string(p.Side), p.Quantity, p.AveragePrice, p.OpenedAt.UTC()}
}

func scanPosition(s scanner) (ledger.Position, error) {
	var (
		p    ledger.Position
		side string
	)
	if err := s.Scan(&p.StrategyID, &p.Symbol, &side, &p.Quantity, &p.AveragePrice, &p.OpenedAt); err != nil {
		return ledger.Position{}, err
	}
	p.Side = ledger.Side(side)
	p.OpenedAt = p.OpenedAt.UTC()
	return p, nil
}

func tradeArgs(t ledger.Trade) []any {
	return []any{
		t.ID, t.StrategyID, t.Symbol,
		t.EntryOrderID, t.EntryPrice, t.EntryQuantity, t.EntryTime.UTC(),
		t.ExitOrderID, t.ExitPrice, t.ExitQuantity, t.ExitTime.UTC(),
		t.GrossPnL, t.NetPnL, t.PnLPercent, t.TotalCommission, t.TotalSlippage, t.IsOpen,
	}
}

func scanTrade(s scanner) (ledger.Trade, error) {
	var t ledger.Trade
	err := s.Scan(
		&t.ID, &t.StrategyID, &t.Symbol,
		&t.EntryOrderID, &t.EntryPrice, &t.EntryQuantity, &t.EntryTime,
		&t.ExitOrderID, &t.ExitPrice, &t.ExitQuantity, &t.ExitTime,
		&t.GrossPnL, &t.NetPnL, &t.PnLPercent, &t.TotalCommission, &t.TotalSlippage, &t.IsOpen,
	)
	if err != nil {
		return ledger.Trade{}, err
	}
	t.EntryTime, t.ExitTime = t.EntryTime.UTC(), t.ExitTime.UTC()
	return t, nil
}

func snapshotArgs(s ledger.Snapshot) []any {
	return []any{s.Time.UTC(), s.Cash, s.PositionsValue, s.TotalValue, s.TotalPnL, s.TotalPnLPercent, s.NumPositions}
}

func scanSnapshot(sc scanner) (ledger.Snapshot, error) {
	var s ledger.Snapshot
	if err := sc.Scan(&s.Time, &s.Cash, &s.PositionsValue, &s.TotalValue, &s.TotalPnL, &s.TotalPnLPercent, &s.NumPositions); err != nil {
		return ledger.Snapshot{}, err
	}
	s.Time = s.Time.UTC()
	return s, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
