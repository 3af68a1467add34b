package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rustyeddy/papertrader/ledger"

	_ "github.com/mattn/go-sqlite3"
)

// Compile-time interface check.
var _ Store = (*SQLite)(nil)

// SQLite is a journal in a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer; avoids "database is locked" between pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(SQLiteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordOrder(ctx context.Context, o ledger.Order) error {
	if _, err := j.db.ExecContext(ctx, upsertOrderSQL, orderArgs(o)...); err != nil {
		return fmt.Errorf("record order %s: %w", o.ID, err)
	}
	return nil
}

func (j *SQLite) RecordPosition(ctx context.Context, p ledger.Position) error {
	if _, err := j.db.ExecContext(ctx, upsertPositionSQL, positionArgs(p)...); err != nil {
		return fmt.Errorf("record position %s: %w", p.Key(), err)
	}
	return nil
}

func (j *SQLite) DeletePosition(ctx context.Context, key ledger.Key) error {
	if _, err := j.db.ExecContext(ctx, deletePositionSQL, key.StrategyID, key.Symbol); err != nil {
		return fmt.Errorf("delete position %s: %w", key, err)
	}
	return nil
}

func (j *SQLite) RecordTrade(ctx context.Context, t ledger.Trade) error {
	if _, err := j.db.ExecContext(ctx, insertTradeSQL, tradeArgs(t)...); err != nil {
		return fmt.Errorf("record trade %s: %w", t.ID, err)
	}
	return nil
}

func (j *SQLite) RecordSnapshot(ctx context.Context, s ledger.Snapshot) error {
	if _, err := j.db.ExecContext(ctx, upsertSnapshotSQL, snapshotArgs(s)...); err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
