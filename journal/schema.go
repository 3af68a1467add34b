package journal

// SQLiteSchema stores money as decimal TEXT so values round trip exactly.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id TEXT PRIMARY KEY,
	strategy_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	order_type TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity TEXT NOT NULL,
	limit_price TEXT,
	status TEXT NOT NULL,
	reject_reason TEXT NOT NULL DEFAULT '',
	fill_price TEXT NOT NULL,
	commission TEXT NOT NULL,
	slippage TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	filled_at DATETIME
);

CREATE TABLE IF NOT EXISTS positions (
	strategy_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity TEXT NOT NULL,
	average_price TEXT NOT NULL,
	opened_at DATETIME NOT NULL,
	PRIMARY KEY (strategy_id, symbol)
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	strategy_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	entry_order_id TEXT NOT NULL,
	entry_price TEXT NOT NULL,
	entry_quantity TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_order_id TEXT NOT NULL,
	exit_price TEXT NOT NULL,
	exit_quantity TEXT NOT NULL,
	exit_time DATETIME NOT NULL,
	gross_pnl TEXT NOT NULL,
	net_pnl TEXT NOT NULL,
	pnl_percent TEXT NOT NULL,
	total_commission TEXT NOT NULL,
	total_slippage TEXT NOT NULL,
	is_open INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	timestamp DATETIME PRIMARY KEY,
	cash TEXT NOT NULL,
	positions_value TEXT NOT NULL,
	total_value TEXT NOT NULL,
	total_pnl TEXT NOT NULL,
	total_pnl_percent TEXT NOT NULL,
	num_positions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
CREATE INDEX IF NOT EXISTS idx_orders_strategy_symbol ON orders(strategy_id, symbol);
`

// PostgresSchema is the same layout with native NUMERIC and TIMESTAMPTZ.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id TEXT PRIMARY KEY,
	strategy_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	order_type TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity NUMERIC NOT NULL,
	limit_price NUMERIC,
	status TEXT NOT NULL,
	reject_reason TEXT NOT NULL DEFAULT '',
	fill_price NUMERIC NOT NULL,
	commission NUMERIC NOT NULL,
	slippage NUMERIC NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	filled_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS positions (
	strategy_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity NUMERIC NOT NULL,
	average_price NUMERIC NOT NULL,
	opened_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (strategy_id, symbol)
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	strategy_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	entry_order_id TEXT NOT NULL,
	entry_price NUMERIC NOT NULL,
	entry_quantity NUMERIC NOT NULL,
	entry_time TIMESTAMPTZ NOT NULL,
	exit_order_id TEXT NOT NULL,
	exit_price NUMERIC NOT NULL,
	exit_quantity NUMERIC NOT NULL,
	exit_time TIMESTAMPTZ NOT NULL,
	gross_pnl NUMERIC NOT NULL,
	net_pnl NUMERIC NOT NULL,
	pnl_percent NUMERIC NOT NULL,
	total_commission NUMERIC NOT NULL,
	total_slippage NUMERIC NOT NULL,
	is_open BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	timestamp TIMESTAMPTZ PRIMARY KEY,
	cash NUMERIC NOT NULL,
	positions_value NUMERIC NOT NULL,
	total_value NUMERIC NOT NULL,
	total_pnl NUMERIC NOT NULL,
	total_pnl_percent NUMERIC NOT NULL,
	num_positions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
CREATE INDEX IF NOT EXISTS idx_orders_strategy_symbol ON orders(strategy_id, symbol);
`
