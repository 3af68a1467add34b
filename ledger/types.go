package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is MARKET or LIMIT.
type OrderType string

// Side is the direction of an order or position. LONG buys, SHORT sells.
type Side string

// Status is the lifecycle state of an order.
type Status string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"

	Long  Side = "LONG"
	Short Side = "SHORT"

	StatusPending   Status = "PENDING"
	StatusFilled    Status = "FILLED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Key identifies a position: one per strategy and symbol.
type Key struct {
	StrategyID string
	Symbol     string
}

func (k Key) String() string {
	return k.StrategyID + "/" + k.Symbol
}

func (k Key) less(o Key) bool {
	if k.StrategyID != o.StrategyID {
		return k.StrategyID < o.StrategyID
	}
	return k.Symbol < o.Symbol
}

// OrderRequest carries the caller supplied fields of a new order.
type OrderRequest struct {
	Symbol     string
	StrategyID string
	Side       Side
	Quantity   decimal.Decimal
	Type       OrderType // defaults to Market
	LimitPrice *decimal.Decimal
}

// Order is an intent to trade. Once it leaves PENDING it never changes again.
type Order struct {
	ID         string
	StrategyID string
	Symbol     string
	Type       OrderType
	Side       Side
	Quantity   decimal.Decimal
	LimitPrice *decimal.Decimal

	Status       Status
	RejectReason string

	// Set only when Status is FILLED.
	FillPrice  decimal.Decimal
	Commission decimal.Decimal
	Slippage   decimal.Decimal // total slippage cost: per unit slippage * quantity

	CreatedAt time.Time
	FilledAt  time.Time
}

// Key returns the position key this order trades against.
func (o Order) Key() Key {
	return Key{StrategyID: o.StrategyID, Symbol: o.Symbol}
}

// Value is FillPrice * Quantity, zero for unfilled orders.
func (o Order) Value() decimal.Decimal {
	return o.FillPrice.Mul(o.Quantity)
}

func (o Order) clone() Order {
	c := o
	if o.LimitPrice != nil {
		lp := *o.LimitPrice
		c.LimitPrice = &lp
	}
	return c
}

// Position is the net standing exposure for one Key.
type Position struct {
	Symbol       string
	StrategyID   string
	Side         Side
	Quantity     decimal.Decimal
	AveragePrice decimal.Decimal
	OpenedAt     time.Time
}

func (p Position) Key() Key {
	return Key{StrategyID: p.StrategyID, Symbol: p.Symbol}
}

// CostBasis is AveragePrice * Quantity.
func (p Position) CostBasis() decimal.Decimal {
	return p.AveragePrice.Mul(p.Quantity)
}

// UnrealizedPnL values the position at mark.
func (p Position) UnrealizedPnL(mark decimal.Decimal) decimal.Decimal {
	return mark.Sub(p.AveragePrice).Mul(p.Quantity)
}

// Trade is a closed round trip: a matched entry and exit.
type Trade struct {
	ID         string
	StrategyID string
	Symbol     string

	EntryOrderID  string
	EntryPrice    decimal.Decimal
	EntryQuantity decimal.Decimal
	EntryTime     time.Time

	ExitOrderID  string
	ExitPrice    decimal.Decimal
	ExitQuantity decimal.Decimal
	ExitTime     time.Time

	GrossPnL        decimal.Decimal
	NetPnL          decimal.Decimal
	PnLPercent      decimal.Decimal
	TotalCommission decimal.Decimal
	TotalSlippage   decimal.Decimal

	IsOpen bool
}

// Snapshot is a point in time valuation of the ledger.
type Snapshot struct {
	Time            time.Time
	Cash            decimal.Decimal
	PositionsValue  decimal.Decimal
	TotalValue      decimal.Decimal
	TotalPnL        decimal.Decimal
	TotalPnLPercent decimal.Decimal
	NumPositions    int
}

// Totals are the cumulative ledger counters.
type Totals struct {
	Commissions decimal.Decimal
	Slippage    decimal.Decimal
	PeakValue   decimal.Decimal
}

// Outcome classifies the result of ExecuteOrder.
type Outcome int

const (
	// OutcomeFilled: the order filled and the ledger moved.
	OutcomeFilled Outcome = iota + 1
	// OutcomeRejected: the order is now REJECTED, nothing else moved.
	OutcomeRejected
	// OutcomeDeferred: limit not reached; the order stays PENDING.
	OutcomeDeferred
	// OutcomeNotPending: the order was already terminal; nothing moved.
	OutcomeNotPending
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFilled:
		return "filled"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeNotPending:
		return "not-pending"
	}
	return "unknown"
}

// Execution reports what ExecuteOrder did.
type Execution struct {
	Outcome Outcome
	Reason  string

	// Order is a copy of the order after the attempt.
	Order Order

	// Position is the position after a fill, nil if the fill closed it.
	Position *Position

	// Closed is true when the fill took the position to zero.
	Closed bool

	// Trade is the round trip recorded by the closing fill, if any.
	Trade *Trade
}

// Filled reports whether the order executed.
func (e Execution) Filled() bool {
	return e.Outcome == OutcomeFilled
}
