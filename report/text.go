package report

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// Print writes a plain text performance report.
func Print(w io.Writer, m Metrics, currency string) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Performance")
	fmt.Fprintln(w, "==================================================")
	if m.StrategyID != "" {
		fmt.Fprintf(w, "Strategy:        %s\n", m.StrategyID)
	}
	if !m.Start.IsZero() {
		fmt.Fprintf(w, "Period:          %s .. %s (%d days)\n",
			m.Start.Format(time.RFC3339), m.End.Format(time.RFC3339), m.Days)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Capital")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Starting:        %s\n", Money(m.StartingCapital, currency))
	fmt.Fprintf(w, "Ending:          %s\n", Money(m.EndingCapital, currency))
	fmt.Fprintf(w, "Peak:            %s\n", Money(m.PeakCapital, currency))
	fmt.Fprintf(w, "Return:          %s (%s%%)\n", SignedMoney(m.TotalReturn, currency), m.TotalReturnPercent.StringFixed(2))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trades")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Total:           %d\n", m.Trades)
	fmt.Fprintf(w, "Wins:            %d\n", m.Wins)
	fmt.Fprintf(w, "Losses:          %d\n", m.Losses)
	fmt.Fprintf(w, "Win Rate:        %.1f%%\n", m.WinRate*100)
	fmt.Fprintf(w, "Avg Profit:      %s\n", SignedMoney(m.AverageProfit, currency))
	fmt.Fprintf(w, "Largest Win:     %s\n", Money(m.LargestWin, currency))
	fmt.Fprintf(w, "Largest Loss:    %s\n", Money(m.LargestLoss, currency))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Risk")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Max Drawdown:    %s (%s%%)\n", Money(m.MaxDrawdown, currency), m.MaxDrawdownPercent.StringFixed(2))
	fmt.Fprintf(w, "Volatility:      %s\n", optional(m.Volatility, "%.2f%%"))
	fmt.Fprintf(w, "Sharpe:          %s\n", optional(m.Sharpe, "%.2f"))
	fmt.Fprintf(w, "Sortino:         %s\n", optional(m.Sortino, "%.2f"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Costs")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Commissions:     %s\n", Money(m.Commissions, currency))
	fmt.Fprintf(w, "Slippage:        %s\n", Money(m.Slippage, currency))
	fmt.Fprintf(w, "Total:           %s\n", Money(m.Commissions.Add(m.Slippage), currency))
}

func optional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func pct(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
