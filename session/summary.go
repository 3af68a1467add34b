package session

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the end of session report.
type Summary struct {
	Iterations     int
	InitialCapital decimal.Decimal
	FinalCash      decimal.Decimal
	FinalValue     decimal.Decimal // total value at the last snapshot
	TotalPnL       decimal.Decimal

	Trades  int
	Wins    int // net P&L > 0
	Losses  int // net P&L <= 0
	WinRate float64

	Commissions decimal.Decimal
	Slippage    decimal.Decimal
	MaxDrawdown decimal.Decimal

	Signals    int
	Fills      int
	Rejections int

	OpenPositions int
	Elapsed       time.Duration
}

// Summary reports on the session so far.
func (r *Runner) Summary() Summary {
	l := r.Ledger
	totals := l.Totals()
	trades := l.Trades()

	s := Summary{
		Iterations:     r.iteration,
		InitialCapital: l.InitialCapital(),
		FinalCash:      l.Cash(),
		Trades:         len(trades),
		Commissions:    totals.Commissions,
		Slippage:       totals.Slippage,
		MaxDrawdown:    l.MaxDrawdown(),
		Signals:        r.stats.signals,
		Fills:          r.stats.fills,
		Rejections:     r.stats.rejections,
		OpenPositions:  len(l.Positions()),
	}

	if r.last != nil {
		s.FinalValue, s.TotalPnL = r.last.TotalValue, r.last.TotalPnL
	} else {
		s.FinalValue = s.FinalCash
		s.TotalPnL = s.FinalCash.Sub(s.InitialCapital)
	}

	for _, t := range trades {
		if t.NetPnL.IsPositive() {
			s.Wins++
		} else {
			s.Losses++
		}
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	}
	return s
}

func (r *Runner) logSummary(s Summary) {
	r.Log.Info("final summary",
		"iterations", s.Iterations,
		"initial_capital", s.InitialCapital.StringFixed(2),
		"final_cash", s.FinalCash.StringFixed(2),
		"final_value", s.FinalValue.StringFixed(2),
		"total_trades", s.Trades,
		"winning", s.Wins,
		"losing", s.Losses,
		"win_rate", decimal.NewFromFloat(s.WinRate).StringFixed(1),
		"commissions", s.Commissions.StringFixed(2),
		"slippage", s.Slippage.StringFixed(2),
		"max_drawdown", s.MaxDrawdown.StringFixed(2),
		"elapsed", s.Elapsed.Round(time.Millisecond))
}
