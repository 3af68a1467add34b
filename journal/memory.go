package journal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
)

// Compile-time interface check.
var _ Store = (*Memory)(nil)

// Memory is an in-process Store, used for dry runs and tests.
type Memory struct {
	mu        sync.Mutex
	orders    map[string]ledger.Order
	positions map[ledger.Key]ledger.Position
	trades    []ledger.Trade
	snapshots map[int64]ledger.Snapshot
}

func NewMemory() *Memory {
	return &Memory{
		orders:    make(map[string]ledger.Order),
		positions: make(map[ledger.Key]ledger.Position),
		snapshots: make(map[int64]ledger.Snapshot),
	}
}

func (m *Memory) RecordOrder(_ context.Context, o ledger.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *Memory) RecordPosition(_ context.Context, p ledger.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.Key()] = p
	return nil
}

func (m *Memory) DeletePosition(_ context.Context, key ledger.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, key)
	return nil
}

func (m *Memory) RecordTrade(_ context.Context, t ledger.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.trades {
		if have.ID == t.ID {
			return fmt.Errorf("record trade %s: duplicate id", t.ID)
		}
	}
	m.trades = append(m.trades, t)
	return nil
}

func (m *Memory) RecordSnapshot(_ context.Context, s ledger.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.Time.UnixNano()] = s
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) GetTrade(_ context.Context, tradeID string) (ledger.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trades {
		if t.ID == tradeID {
			return t, nil
		}
	}
	return ledger.Trade{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
}

func (m *Memory) ListTradesClosedBetween(_ context.Context, start, end time.Time) ([]ledger.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledger.Trade
	for _, t := range m.trades {
		if !t.ExitTime.Before(start) && t.ExitTime.Before(end) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExitTime.Before(out[j].ExitTime) })
	return out, nil
}

func (m *Memory) ListSnapshotsBetween(_ context.Context, start, end time.Time) ([]ledger.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledger.Snapshot
	for _, s := range m.snapshots {
		if !s.Time.Before(start) && s.Time.Before(end) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (m *Memory) ListPositions(_ context.Context) ([]ledger.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ledger.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StrategyID != out[j].StrategyID {
			return out[i].StrategyID < out[j].StrategyID
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}

func (m *Memory) ListOrders(_ context.Context) ([]ledger.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ledger.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
