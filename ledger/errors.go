package ledger

import "errors"

// Business outcomes (rejections, deferrals, integrity warnings) are reported
// through Execution. These errors are reserved for invalid input.
var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidOrder    = errors.New("invalid order")
	ErrInvalidConfig   = errors.New("invalid ledger config")
	ErrUnknownOrder    = errors.New("order not found in ledger")
	ErrOrderNotPending = errors.New("order is not pending")
)

// Rejection reasons carried in Order.RejectReason and Execution.Reason.
const (
	ReasonNoLimitPrice     = "limit order has no limit price"
	ReasonInsufficientCash = "insufficient cash"
	ReasonNoPosition       = "no position"
	ReasonOversell         = "oversell"
)
