package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
)

// GetTrade returns a single trade by ID.
func (j *SQLite) GetTrade(ctx context.Context, tradeID string) (ledger.Trade, error) {
	t, err := scanTrade(j.db.QueryRowContext(ctx, getTradeSQL, tradeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Trade{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
		}
		return ledger.Trade{}, err
	}
	return t, nil
}

// ListTradesClosedBetween returns trades whose exit time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]ledger.Trade, error) {
	return queryAll(ctx, j.db, scanTrade, listTradesSQL, start.UTC(), end.UTC())
}

// ListSnapshotsBetween returns snapshots taken within [start, end).
func (j *SQLite) ListSnapshotsBetween(ctx context.Context, start, end time.Time) ([]ledger.Snapshot, error) {
	return queryAll(ctx, j.db, scanSnapshot, listSnapshotsSQL, start.UTC(), end.UTC())
}

// ListPositions returns the open positions ordered by key.
func (j *SQLite) ListPositions(ctx context.Context) ([]ledger.Position, error) {
	return queryAll(ctx, j.db, scanPosition, listPositionsSQL)
}

// ListOrders returns every order in creation order.
func (j *SQLite) ListOrders(ctx context.Context) ([]ledger.Order, error) {
	return queryAll(ctx, j.db, scanOrder, listOrdersSQL)
}

func queryAll[T any](ctx context.Context, db *sql.DB, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
