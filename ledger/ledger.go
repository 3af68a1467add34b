// Package ledger is the portfolio ledger engine of the paper trader.
//
// A Ledger owns cash, orders, positions and closed trades for one portfolio.
// Orders are created PENDING and executed against a caller supplied price;
// a fill moves cash, updates the position for its (strategy, symbol) key and,
// when the position reaches zero, records a Trade. Valuation is computed on
// demand from the caller's current prices.
//
// Every state transition happens under a single mutex, so a Ledger may be
// shared between goroutines, but executions are serialized. The ledger does
// no I/O: prices come in as plain values and persistence is the caller's job.
package ledger

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Config holds the ledger's starting capital and execution frictions.
type Config struct {
	InitialCapital decimal.Decimal
	// CommissionRate is charged as a fraction of traded value.
	CommissionRate decimal.Decimal
	// SlippageRate moves the execution price against the trader, as a
	// fraction of the current price.
	SlippageRate decimal.Decimal
}

// DefaultConfig returns $100 capital, 0.1% commission and 0.05% slippage.
func DefaultConfig() Config {
	return Config{
		InitialCapital: decimal.NewFromInt(100),
		CommissionRate: decimal.RequireFromString("0.001"),
		SlippageRate:   decimal.RequireFromString("0.0005"),
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if !c.InitialCapital.IsPositive() {
		return fmt.Errorf("%w: initial capital must be positive", ErrInvalidConfig)
	}
	if c.CommissionRate.IsNegative() || c.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: commission rate must be in [0, 1)", ErrInvalidConfig)
	}
	if c.SlippageRate.IsNegative() || c.SlippageRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: slippage rate must be in [0, 1)", ErrInvalidConfig)
	}
	return nil
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock sets the time source used for order and fill timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Ledger is a single paper trading portfolio.
type Ledger struct {
	mu  sync.Mutex
	cfg Config

	cash      decimal.Decimal
	positions map[Key]*Position
	orders    []*Order
	byID      map[string]*Order
	trades    []Trade

	// last prices seen by Snapshot, used to mark positions in MaxDrawdown
	marks map[string]decimal.Decimal

	peak        decimal.Decimal
	commissions decimal.Decimal
	slippage    decimal.Decimal

	now func() time.Time
	log *slog.Logger
}

// New returns a Ledger holding cfg.InitialCapital in cash.
func New(cfg Config, opts ...Option) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Ledger{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.resetLocked()
	l.log.Info("ledger initialized",
		"capital", cfg.InitialCapital,
		"commission_rate", cfg.CommissionRate,
		"slippage_rate", cfg.SlippageRate)
	return l, nil
}

// Config returns the ledger's configuration.
func (l *Ledger) Config() Config {
	return l.cfg
}

// InitialCapital returns the starting cash.
func (l *Ledger) InitialCapital() decimal.Decimal {
	return l.cfg.InitialCapital
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// Totals returns cumulative commissions, slippage and the peak value seen.
func (l *Ledger) Totals() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Totals{
		Commissions: l.commissions,
		Slippage:    l.slippage,
		PeakValue:   l.peak,
	}
}

// Position returns a copy of the position for key.
func (l *Ledger) Position(key Key) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[key]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Positions returns copies of all open positions ordered by key.
func (l *Ledger) Positions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().less(out[j].Key()) })
	return out
}

// Order returns a copy of the order with the given id.
func (l *Ledger) Order(id string) (Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.byID[id]
	if !ok {
		return Order{}, false
	}
	return o.clone(), true
}

// Orders returns copies of every order in creation order.
func (l *Ledger) Orders() []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Order, len(l.orders))
	for i, o := range l.orders {
		out[i] = o.clone()
	}
	return out
}

// Trades returns the recorded round trips in closing order.
func (l *Ledger) Trades() []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Trade(nil), l.trades...)
}

// Reset returns the ledger to its initial state, discarding all history.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked()
	l.log.Info("ledger reset")
}

func (l *Ledger) resetLocked() {
	l.cash = l.cfg.InitialCapital
	l.positions = make(map[Key]*Position)
	l.orders = nil
	l.byID = make(map[string]*Order)
	l.trades = nil
	l.marks = make(map[string]decimal.Decimal)
	l.peak = l.cfg.InitialCapital
	l.commissions = decimal.Zero
	l.slippage = decimal.Zero
}
