package ledger

import (
	"fmt"

	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/shopspring/decimal"
)

// CreateOrder records a new PENDING order and returns a copy of it. The
// ledger keeps its own record; ExecuteOrder syncs the copy it is given. A
// LIMIT order without a limit price is accepted here and rejected when
// executed.
func (l *Ledger) CreateOrder(req OrderRequest) (*Order, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	o := &Order{
		ID:         id.Prefixed("ORD"),
		StrategyID: req.StrategyID,
		Symbol:     req.Symbol,
		Type:       req.Type,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Status:     StatusPending,
		CreatedAt:  l.now(),
	}
	if req.LimitPrice != nil {
		lp := *req.LimitPrice
		o.LimitPrice = &lp
	}
	l.orders = append(l.orders, o)
	l.byID[o.ID] = o

	l.log.Info("order created",
		"order_id", o.ID,
		"strategy", o.StrategyID,
		"symbol", o.Symbol,
		"side", o.Side,
		"type", o.Type,
		"quantity", o.Quantity)
	c := o.clone()
	return &c, nil
}

func validateRequest(req *OrderRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if req.StrategyID == "" {
		return fmt.Errorf("%w: strategy id is required", ErrInvalidOrder)
	}
	if req.Side != Long && req.Side != Short {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, req.Side)
	}
	if req.Type == "" {
		req.Type = Market
	}
	if req.Type != Market && req.Type != Limit {
		return fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, req.Type)
	}
	if !req.Quantity.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidQuantity, req.Quantity)
	}
	if req.LimitPrice != nil && !req.LimitPrice.IsPositive() {
		return fmt.Errorf("%w: limit price %s", ErrInvalidPrice, req.LimitPrice)
	}
	return nil
}

// ExecuteOrder tries to fill a PENDING order at currentPrice.
//
// Rejections, unmet limits and already terminal orders are not errors: they
// come back as the Execution's Outcome with a Reason. An error means the input
// was invalid (nil order, non-positive price, order from another ledger).
//
// A fill is atomic: order status, cash, counters, the position and the closing
// trade, if any, all change together under the ledger lock.
func (l *Ledger) ExecuteOrder(o *Order, currentPrice decimal.Decimal) (Execution, error) {
	if o == nil {
		return Execution{}, fmt.Errorf("%w: nil order", ErrInvalidOrder)
	}
	if !currentPrice.IsPositive() {
		return Execution{}, fmt.Errorf("execute %s: %w: got %s", o.ID, ErrInvalidPrice, currentPrice)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	own, ok := l.byID[o.ID]
	if !ok {
		return Execution{}, fmt.Errorf("execute %s: %w", o.ID, ErrUnknownOrder)
	}

	exec := l.executeLocked(own, currentPrice)
	if o != own {
		*o = own.clone()
	}
	exec.Order = own.clone()
	return exec, nil
}

func (l *Ledger) executeLocked(o *Order, price decimal.Decimal) Execution {
	if o.Status.Terminal() {
		l.log.Warn("order is not pending", "order_id", o.ID, "status", o.Status)
		return Execution{Outcome: OutcomeNotPending, Reason: fmt.Sprintf("order is %s", o.Status)}
	}

	if o.Type == Limit {
		if o.LimitPrice == nil {
			return l.reject(o, ReasonNoLimitPrice)
		}
		if o.Side == Long && price.GreaterThan(*o.LimitPrice) {
			l.log.Debug("limit buy not executed", "order_id", o.ID, "price", price, "limit", *o.LimitPrice)
			return Execution{Outcome: OutcomeDeferred, Reason: fmt.Sprintf("price %s above limit %s", price, *o.LimitPrice)}
		}
		if o.Side == Short && price.LessThan(*o.LimitPrice) {
			l.log.Debug("limit sell not executed", "order_id", o.ID, "price", price, "limit", *o.LimitPrice)
			return Execution{Outcome: OutcomeDeferred, Reason: fmt.Sprintf("price %s below limit %s", price, *o.LimitPrice)}
		}
	}

	// Slippage always works against the trader.
	slip := price.Mul(l.cfg.SlippageRate)
	execPrice := price.Add(slip)
	if o.Side == Short {
		execPrice = price.Sub(slip)
	}
	value := execPrice.Mul(o.Quantity)
	commission := value.Mul(l.cfg.CommissionRate)

	switch o.Side {
	case Long:
		cost := value.Add(commission)
		if l.cash.LessThan(cost) {
			return l.reject(o, fmt.Sprintf("%s: need %s, have %s",
				ReasonInsufficientCash, cost.StringFixed(2), l.cash.StringFixed(2)))
		}
	case Short:
		pos, ok := l.positions[o.Key()]
		if !ok {
			l.log.Warn("sell with no position", "order_id", o.ID, "strategy", o.StrategyID, "symbol", o.Symbol)
			return l.reject(o, ReasonNoPosition)
		}
		if o.Quantity.GreaterThan(pos.Quantity) {
			return l.reject(o, fmt.Sprintf("%s: selling %s, holding %s", ReasonOversell, o.Quantity, pos.Quantity))
		}
	}

	o.Status = StatusFilled
	o.FillPrice = execPrice
	o.FilledAt = l.now()
	o.Commission = commission
	o.Slippage = slip.Mul(o.Quantity)

	l.commissions = l.commissions.Add(o.Commission)
	l.slippage = l.slippage.Add(o.Slippage)

	if o.Side == Long {
		l.cash = l.cash.Sub(value.Add(commission))
	} else {
		l.cash = l.cash.Add(value.Sub(commission))
	}

	exec := Execution{Outcome: OutcomeFilled}
	exec.Position, exec.Closed, exec.Trade = l.applyFill(o)

	l.log.Info("order executed",
		"order_id", o.ID,
		"side", o.Side,
		"quantity", o.Quantity,
		"symbol", o.Symbol,
		"price", execPrice.StringFixed(4),
		"commission", commission.StringFixed(4),
		"cash", l.cash.StringFixed(2))
	return exec
}

func (l *Ledger) reject(o *Order, reason string) Execution {
	o.Status = StatusRejected
	o.RejectReason = reason
	l.log.Warn("order rejected", "order_id", o.ID, "symbol", o.Symbol, "side", o.Side, "reason", reason)
	return Execution{Outcome: OutcomeRejected, Reason: reason}
}

// CancelOrder moves a PENDING order to CANCELLED.
func (l *Ledger) CancelOrder(orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.byID[orderID]
	if !ok {
		return fmt.Errorf("cancel %s: %w", orderID, ErrUnknownOrder)
	}
	if o.Status.Terminal() {
		return fmt.Errorf("cancel %s (%s): %w", orderID, o.Status, ErrOrderNotPending)
	}
	o.Status = StatusCancelled
	l.log.Info("order cancelled", "order_id", o.ID)
	return nil
}

// PendingOrders returns copies of the orders still waiting to execute.
func (l *Ledger) PendingOrders() []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Order
	for _, o := range l.orders {
		if o.Status == StatusPending {
			out = append(out, o.clone())
		}
	}
	return out
}
