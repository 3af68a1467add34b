package indicators

import "fmt"

// SMA returns the rolling simple moving average of values. Element i of the
// result is the mean of values[i : i+period], so the result has
// len(values)-period+1 entries.
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return nil, fmt.Errorf("not enough values: need %d, got %d", period, len(values))
	}
	return Series(func() Indicator { return NewMA(period) }, values), nil
}

// EMA returns the exponential moving average of values, seeded with the SMA
// of the first period values. The result has len(values)-period+1 entries.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return nil, fmt.Errorf("not enough values: need %d, got %d", period, len(values))
	}
	return Series(func() Indicator { return NewEMA(period) }, values), nil
}
