// Package journal persists ledger activity. Every backend keeps four
// independent tables: orders keyed by order id, positions keyed by strategy
// and symbol, trades keyed by trade id and snapshots keyed by timestamp.
// Trades refer to orders by id only; nothing cascades.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found in journal")

// Journal records ledger state as it changes.
type Journal interface {
	// RecordOrder inserts or updates an order by id.
	RecordOrder(ctx context.Context, o ledger.Order) error
	// RecordPosition inserts or updates the position for its key.
	RecordPosition(ctx context.Context, p ledger.Position) error
	// DeletePosition removes a closed position.
	DeletePosition(ctx context.Context, key ledger.Key) error
	RecordTrade(ctx context.Context, t ledger.Trade) error
	RecordSnapshot(ctx context.Context, s ledger.Snapshot) error
	Close() error
}

// Reader queries a journal.
type Reader interface {
	GetTrade(ctx context.Context, tradeID string) (ledger.Trade, error)
	// ListTradesClosedBetween returns trades with exit time in [start, end).
	ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]ledger.Trade, error)
	// ListSnapshotsBetween returns snapshots with time in [start, end).
	ListSnapshotsBetween(ctx context.Context, start, end time.Time) ([]ledger.Snapshot, error)
	ListPositions(ctx context.Context) ([]ledger.Position, error)
	ListOrders(ctx context.Context) ([]ledger.Order, error)
}

// Store is a journal that can also be queried.
type Store interface {
	Journal
	Reader
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordOrder(context.Context, ledger.Order) error { return nil }
func (Nop) RecordPosition(context.Context, ledger.Position) error { return nil }
func (Nop) DeletePosition(context.Context, ledger.Key) error { return nil }
func (Nop) RecordTrade(context.Context, ledger.Trade) error { return nil }
func (Nop) RecordSnapshot(context.Context, ledger.Snapshot) error { return nil }
func (Nop) Close() error { return nil }

// RecordExecution writes everything one ExecuteOrder call changed: the
// order, then the position (or its removal) and the trade if one closed.
func RecordExecution(ctx context.Context, j Journal, exec ledger.Execution) error {
	if err := j.RecordOrder(ctx, exec.Order); err != nil {
		return err
	}
	if !exec.Filled() {
		return nil
	}
	if exec.Closed {
		if err := j.DeletePosition(ctx, exec.Order.Key()); err != nil {
			return err
		}
	} else if exec.Position != nil {
		if err := j.RecordPosition(ctx, *exec.Position); err != nil {
			return err
		}
	}
	if exec.Trade != nil {
		return j.RecordTrade(ctx, *exec.Trade)
	}
	return nil
}
