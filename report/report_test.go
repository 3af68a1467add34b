package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 3, 21, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func trade(strategy, net string, exitDay int) ledger.Trade {
	return ledger.Trade{
		ID:              "TRADE-" + strategy + net,
		StrategyID:      strategy,
		Symbol:          "AAPL",
		EntryTime:       t0,
		ExitTime:        t0.AddDate(0, 0, exitDay),
		NetPnL:          d(net),
		GrossPnL:        d(net),
		TotalCommission: d("1"),
		TotalSlippage:   d("0.5"),
	}
}

func snaps(values ...string) []ledger.Snapshot {
	out := make([]ledger.Snapshot, len(values))
	for i, v := range values {
		out[i] = ledger.Snapshot{Time: t0.AddDate(0, 0, i), TotalValue: d(v)}
	}
	return out
}

func TestComputeTradeStats(t *testing.T) {
	m, err := Compute(Input{
		InitialCapital: d("1000"),
		Trades: []ledger.Trade{
			trade("a", "30", 1),
			trade("a", "-10", 2),
			trade("a", "0", 3),
			trade("b", "50", 4),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, m.Trades)
	assert.Equal(t, 2, m.Wins)
	assert.Equal(t, 2, m.Losses, "break even counts as a loss")
	assert.Equal(t, 0.5, m.WinRate)
	assert.True(t, m.AverageProfit.Equal(d("17.5")))
	assert.True(t, m.LargestWin.Equal(d("50")))
	assert.True(t, m.LargestLoss.Equal(d("-10")))
	assert.True(t, m.Commissions.Equal(d("4")))
	assert.True(t, m.Slippage.Equal(d("2")))

	// no snapshots: ending capital from realized P&L
	assert.True(t, m.EndingCapital.Equal(d("1070")))
	assert.True(t, m.TotalReturn.Equal(d("70")))
	assert.True(t, m.TotalReturnPercent.Equal(d("7")))
	assert.Equal(t, 4, m.Days)
	assert.Nil(t, m.Sharpe)
}

func TestComputeFiltersStrategy(t *testing.T) {
	m, err := Compute(Input{
		StrategyID:     "b",
		InitialCapital: d("1000"),
		Trades:         []ledger.Trade{trade("a", "30", 1), trade("b", "50", 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Trades)
	assert.True(t, m.LargestWin.Equal(d("50")))
	assert.Equal(t, "b", m.StrategyID)
}

func TestComputeDrawdownPercentTrackedSeparately(t *testing.T) {
	m, err := Compute(Input{
		InitialCapital: d("100"),
		Snapshots:      snaps("100", "50", "1000", "900"),
	})
	require.NoError(t, err)

	assert.True(t, m.MaxDrawdown.Equal(d("-100")), m.MaxDrawdown.String())
	assert.True(t, m.MaxDrawdownPercent.Equal(d("-50")), m.MaxDrawdownPercent.String())
}

func TestComputeDrawdown(t *testing.T) {
	m, err := Compute(Input{
		InitialCapital: d("1000"),
		Snapshots:      snaps("1000", "1200", "900", "1100", "1000"),
	})
	require.NoError(t, err)

	assert.True(t, m.PeakCapital.Equal(d("1200")))
	assert.True(t, m.MaxDrawdown.Equal(d("-300")), m.MaxDrawdown.String())
	assert.True(t, m.MaxDrawdownPercent.Equal(d("-25")), m.MaxDrawdownPercent.String())
	assert.True(t, m.EndingCapital.Equal(d("1000")))
	assert.True(t, m.TotalReturn.IsZero())
	assert.Equal(t, t0, m.Start)
	assert.Equal(t, 4, m.Days)
}

func TestComputeSnapshotOrder(t *testing.T) {
	s := snaps("1000", "1100", "1050")
	s[0], s[2] = s[2], s[0]
	m, err := Compute(Input{InitialCapital: d("1000"), Snapshots: s})
	require.NoError(t, err)
	assert.True(t, m.EndingCapital.Equal(d("1050")))
}

func TestComputeRiskRatios(t *testing.T) {
	m, err := Compute(Input{
		InitialCapital: d("100"),
		Snapshots:      snaps("101", "102.01", "100.99", "102"),
		RiskFreeRate:   0,
		PeriodsPerYear: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, m.Volatility)
	require.NotNil(t, m.Sharpe)
	require.NotNil(t, m.Sortino)

	mean, sd := meanStd([]float64{0.01, 0.01, 100.99/102.01 - 1, 102/100.99 - 1})
	assert.InDelta(t, mean/sd, *m.Sharpe, 1e-3)
	assert.InDelta(t, sd*100, *m.Volatility, 1e-3)
	assert.Greater(t, *m.Sortino, *m.Sharpe)
}

func TestComputeFlatCurveHasNoRatios(t *testing.T) {
	m, err := Compute(Input{InitialCapital: d("100"), Snapshots: snaps("100", "100", "100")})
	require.NoError(t, err)
	assert.Nil(t, m.Sharpe)
	assert.Nil(t, m.Volatility)
	assert.True(t, m.MaxDrawdown.IsZero())
}

func TestComputeCostOverrides(t *testing.T) {
	c, s := d("9.5"), d("3.25")
	m, err := Compute(Input{InitialCapital: d("100"), Trades: []ledger.Trade{trade("a", "1", 1)}, Commissions: &c, Slippage: &s})
	require.NoError(t, err)
	assert.True(t, m.Commissions.Equal(c))
	assert.True(t, m.Slippage.Equal(s))
}

func TestComputeRequiresCapital(t *testing.T) {
	_, err := Compute(Input{})
	assert.ErrorIs(t, err, ErrNoCapital)
}

func TestMoney(t *testing.T) {
	tests := []struct {
		amount, currency, want string
	}{
		{"1234.5", "USD", "$1,234.50"},
		{"0.005", "USD", "$0.01"},
		{"-12.34", "USD", "-$12.34"},
		{"1000", "JPY", "¥1,000"},
		{"1.5", "XXX_NOPE", "1.50 XXX_NOPE"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Money(d(tt.amount), tt.currency), tt.amount+" "+tt.currency)
	}
	assert.Equal(t, "+$5.00", SignedMoney(d("5"), "USD"))
	assert.Equal(t, "$0.00", SignedMoney(d("0"), "USD"))
}

func TestPrint(t *testing.T) {
	m, err := Compute(Input{
		InitialCapital: d("1000"),
		Trades:         []ledger.Trade{trade("a", "30", 1)},
		Snapshots:      snaps("1030"),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	Print(&buf, m, "USD")
	out := buf.String()
	assert.Contains(t, out, "Starting:        $1,000.00")
	assert.Contains(t, out, "Return:          +$30.00 (3.00%)")
	assert.Contains(t, out, "Win Rate:        100.0%")
	assert.Contains(t, out, "Sharpe:          n/a")
}

func TestWriteOrg(t *testing.T) {
	m, err := Compute(Input{
		InitialCapital: d("1000"),
		Trades:         []ledger.Trade{trade("sma_crossover_v1", "30", 1), trade("sma_crossover_v1", "-5", 2)},
		Snapshots:      snaps("1000", "1030", "1025"),
	})
	require.NoError(t, err)

	r := RunReport{
		RunID:       "RUN-1",
		Created:     t0,
		Source:      "parquet",
		Symbols:     []string{"AAPL", "MSFT"},
		Strategies:  []string{"sma_crossover_v1"},
		Iterations:  3,
		Metrics:     m,
		Notes:       []string{"quiet week"},
		NextActions: []string{"try EMA"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOrg(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "* PAPER RUN: sma_crossover_v1 on AAPL, MSFT")
	assert.Contains(t, out, ":RUN_ID:      RUN-1")
	assert.Contains(t, out, ":START_DATE:  2025-03-03")
	assert.Contains(t, out, ":NET_PL:      25.00")
	assert.Contains(t, out, ":WIN_RATE:    50.00%")
	assert.Contains(t, out, ":CREATED:     [2025-03-03 Mon 21:00]")
	assert.Contains(t, out, "- Net P/L:          *+$25.00*")
	assert.Contains(t, out, "| Largest Loss | -$5.00 |")
	assert.Contains(t, out, "- quiet week")
	assert.Contains(t, out, "- [ ] try EMA")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "* PAPER RUN"))

	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, WriteOrgFile(path, r))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}
