package report

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money formats amount in currency with its symbol and minor units, e.g.
// "$1,234.50". Unknown currencies fall back to "<amount> <code>".
func Money(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// SignedMoney is Money with an explicit + for gains.
func SignedMoney(amount decimal.Decimal, currency string) string {
	if amount.IsPositive() {
		return "+" + Money(amount, currency)
	}
	return Money(amount, currency)
}
