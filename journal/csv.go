package journal

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/shopspring/decimal"
)

// Compile-time interface check.
var _ Journal = (*CSVJournal)(nil)

var (
	orderHeader    = []string{"order_id", "strategy_id", "symbol", "order_type", "side", "quantity", "limit_price", "status", "reject_reason", "fill_price", "commission", "slippage", "created_at", "filled_at"}
	positionHeader = []string{"event", "strategy_id", "symbol", "side", "quantity", "average_price", "opened_at"}
	tradeHeader    = []string{"trade_id", "strategy_id", "symbol", "entry_order_id", "entry_price", "entry_quantity", "entry_time", "exit_order_id", "exit_price", "exit_quantity", "exit_time", "gross_pnl", "net_pnl", "pnl_percent", "total_commission", "total_slippage"}
	snapshotHeader = []string{"timestamp", "cash", "positions_value", "total_value", "total_pnl", "total_pnl_percent", "num_positions"}
)

// CSVJournal appends one row per event to four CSV files. Orders are logged
// on every status change and positions as upsert/delete events, so the files
// are a history rather than current state.
type CSVJournal struct {
	mu        sync.Mutex
	orders    *csvFile
	positions *csvFile
	trades    *csvFile
	snapshots *csvFile
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

func createCSV(path string, header []string) (*csvFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	c := &csvFile{f: f, w: csv.NewWriter(f)}
	if err := c.write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return c, nil
}

func (c *csvFile) write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvFile) close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		_ = c.f.Close()
		return err
	}
	return c.f.Close()
}

// NewCSV creates (truncating) the four journal files.
func NewCSV(ordersPath, positionsPath, tradesPath, snapshotsPath string) (*CSVJournal, error) {
	j := &CSVJournal{}
	var err error
	if j.orders, err = createCSV(ordersPath, orderHeader); err != nil {
		return nil, err
	}
	if j.positions, err = createCSV(positionsPath, positionHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if j.trades, err = createCSV(tradesPath, tradeHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if j.snapshots, err = createCSV(snapshotsPath, snapshotHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordOrder(_ context.Context, o ledger.Order) error {
	limit := ""
	if o.LimitPrice != nil {
		limit = o.LimitPrice.String()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.orders.write([]string{
		o.ID, o.StrategyID, o.Symbol, string(o.Type), string(o.Side),
		o.Quantity.String(), limit, string(o.Status), o.RejectReason,
		o.FillPrice.String(), o.Commission.String(), o.Slippage.String(),
		ts(o.CreatedAt), ts(o.FilledAt),
	})
}

func (j *CSVJournal) RecordPosition(_ context.Context, p ledger.Position) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.positions.write([]string{
		"upsert", p.StrategyID, p.Symbol, string(p.Side),
		p.Quantity.String(), p.AveragePrice.String(), ts(p.OpenedAt),
	})
}

func (j *CSVJournal) DeletePosition(_ context.Context, key ledger.Key) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.positions.write([]string{"delete", key.StrategyID, key.Symbol, "", "", "", ""})
}

func (j *CSVJournal) RecordTrade(_ context.Context, t ledger.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.trades.write([]string{
		t.ID, t.StrategyID, t.Symbol,
		t.EntryOrderID, t.EntryPrice.String(), t.EntryQuantity.String(), ts(t.EntryTime),
		t.ExitOrderID, t.ExitPrice.String(), t.ExitQuantity.String(), ts(t.ExitTime),
		f(t.GrossPnL), f(t.NetPnL), f(t.PnLPercent), f(t.TotalCommission), f(t.TotalSlippage),
	})
}

func (j *CSVJournal) RecordSnapshot(_ context.Context, s ledger.Snapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshots.write([]string{
		ts(s.Time), f(s.Cash), f(s.PositionsValue), f(s.TotalValue),
		f(s.TotalPnL), f(s.TotalPnLPercent), strconv.Itoa(s.NumPositions),
	})
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var first error
	for _, c := range []*csvFile{j.orders, j.positions, j.trades, j.snapshots} {
		if c == nil {
			continue
		}
		if err := c.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func f(x decimal.Decimal) string {
	return x.StringFixed(6)
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
