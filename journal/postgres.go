package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rustyeddy/papertrader/ledger"
)

// Compile-time interface check.
var _ Store = (*Postgres)(nil)

// Postgres is a journal in a PostgreSQL database. Money columns are NUMERIC
// and map to decimal.Decimal.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn, verifies connectivity and applies the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (j *Postgres) exec(ctx context.Context, query string, args ...any) error {
	_, err := j.pool.Exec(ctx, rebind(query), args...)
	return err
}

func (j *Postgres) RecordOrder(ctx context.Context, o ledger.Order) error {
	if err := j.exec(ctx, upsertOrderSQL, orderArgs(o)...); err != nil {
		return fmt.Errorf("record order %s: %w", o.ID, err)
	}
	return nil
}

func (j *Postgres) RecordPosition(ctx context.Context, p ledger.Position) error {
	if err := j.exec(ctx, upsertPositionSQL, positionArgs(p)...); err != nil {
		return fmt.Errorf("record position %s: %w", p.Key(), err)
	}
	return nil
}

func (j *Postgres) DeletePosition(ctx context.Context, key ledger.Key) error {
	if err := j.exec(ctx, deletePositionSQL, key.StrategyID, key.Symbol); err != nil {
		return fmt.Errorf("delete position %s: %w", key, err)
	}
	return nil
}

func (j *Postgres) RecordTrade(ctx context.Context, t ledger.Trade) error {
	if err := j.exec(ctx, insertTradeSQL, tradeArgs(t)...); err != nil {
		return fmt.Errorf("record trade %s: %w", t.ID, err)
	}
	return nil
}

func (j *Postgres) RecordSnapshot(ctx context.Context, s ledger.Snapshot) error {
	if err := j.exec(ctx, upsertSnapshotSQL, snapshotArgs(s)...); err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	return nil
}

// GetTrade returns a single trade by ID.
func (j *Postgres) GetTrade(ctx context.Context, tradeID string) (ledger.Trade, error) {
	t, err := scanTrade(j.pool.QueryRow(ctx, rebind(getTradeSQL), tradeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Trade{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
		}
		return ledger.Trade{}, err
	}
	return t, nil
}

func (j *Postgres) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]ledger.Trade, error) {
	return pgQueryAll(ctx, j.pool, scanTrade, listTradesSQL, start.UTC(), end.UTC())
}

func (j *Postgres) ListSnapshotsBetween(ctx context.Context, start, end time.Time) ([]ledger.Snapshot, error) {
	return pgQueryAll(ctx, j.pool, scanSnapshot, listSnapshotsSQL, start.UTC(), end.UTC())
}

func (j *Postgres) ListPositions(ctx context.Context) ([]ledger.Position, error) {
	return pgQueryAll(ctx, j.pool, scanPosition, listPositionsSQL)
}

func (j *Postgres) ListOrders(ctx context.Context) ([]ledger.Order, error) {
	return pgQueryAll(ctx, j.pool, scanOrder, listOrdersSQL)
}

func (j *Postgres) Close() error {
	j.pool.Close()
	return nil
}

func pgQueryAll[T any](ctx context.Context, pool *pgxpool.Pool, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := pool.Query(ctx, rebind(query), args...)
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
