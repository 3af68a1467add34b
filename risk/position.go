// Package risk sizes new positions.
package risk

import "github.com/shopspring/decimal"

// Inputs describe one entry. Fraction is the share of cash the entry may
// commit, e.g. 0.2.
type Inputs struct {
	Cash     decimal.Decimal
	Fraction decimal.Decimal
	Price    decimal.Decimal
}

type Result struct {
	Units    decimal.Decimal // whole shares
	Budget   decimal.Decimal // Cash * Fraction
	Notional decimal.Decimal // Units * Price
}

// Calculate returns floor(cash * fraction / price) whole shares. Anything
// non-positive yields zero units.
func Calculate(in Inputs) Result {
	if !in.Cash.IsPositive() || !in.Fraction.IsPositive() || !in.Price.IsPositive() {
		return Result{Units: decimal.Zero, Budget: decimal.Zero, Notional: decimal.Zero}
	}
	budget := in.Cash.Mul(in.Fraction)
	units := budget.Div(in.Price).Floor()

	return Result{
		Units:    units,
		Budget:   budget,
		Notional: units.Mul(in.Price),
	}
}
