// Package report computes performance metrics from journal data and renders
// them as text or Org-mode.
package report

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/shopspring/decimal"
)

// TradingDaysPerYear annualizes per snapshot statistics when Input does not
// say otherwise.
const TradingDaysPerYear = 252

var hundred = decimal.NewFromInt(100)

// Input is everything Compute looks at.
type Input struct {
	// StrategyID restricts trades to one strategy; empty means all.
	StrategyID     string
	InitialCapital decimal.Decimal
	Trades         []ledger.Trade
	Snapshots      []ledger.Snapshot

	// Commissions and Slippage override the sums over Trades when set, so
	// costs of still open entries are included.
	Commissions *decimal.Decimal
	Slippage    *decimal.Decimal

	RiskFreeRate   float64 // annual, e.g. 0.04
	PeriodsPerYear float64 // snapshots per year, default TradingDaysPerYear
}

// Metrics summarizes a period of trading.
type Metrics struct {
	StrategyID string
	Start, End time.Time
	Days       int

	StartingCapital decimal.Decimal
	EndingCapital   decimal.Decimal
	PeakCapital     decimal.Decimal

	TotalReturn        decimal.Decimal
	TotalReturnPercent decimal.Decimal

	Trades  int
	Wins    int
	Losses  int
	WinRate float64 // fraction in [0, 1]

	AverageProfit decimal.Decimal
	LargestWin    decimal.Decimal
	LargestLoss   decimal.Decimal

	// Drawdowns are <= 0.
	MaxDrawdown        decimal.Decimal
	MaxDrawdownPercent decimal.Decimal

	// Nil when there are too few snapshots or no variation.
	Volatility *float64 // annualized, percent
	Sharpe     *float64
	Sortino    *float64

	Commissions decimal.Decimal
	Slippage    decimal.Decimal
}

// ErrNoCapital is returned when Input.InitialCapital is not positive.
var ErrNoCapital = errors.New("report: initial capital must be positive")

// Compute derives Metrics from trades and snapshots. Snapshots may come in
// any order.
func Compute(in Input) (Metrics, error) {
	if !in.InitialCapital.IsPositive() {
		return Metrics{}, ErrNoCapital
	}
	periods := in.PeriodsPerYear
	if periods <= 0 {
		periods = TradingDaysPerYear
	}

	m := Metrics{
		StrategyID:      in.StrategyID,
		StartingCapital: in.InitialCapital,
		PeakCapital:     in.InitialCapital,
	}

	trades := filterTrades(in.Trades, in.StrategyID)
	m.tradeStats(trades)

	snaps := append([]ledger.Snapshot(nil), in.Snapshots...)
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Time.Before(snaps[j].Time) })
	m.curveStats(snaps, in.RiskFreeRate, periods)

	switch {
	case len(snaps) > 0:
		m.EndingCapital = snaps[len(snaps)-1].TotalValue
	default:
		net := decimal.Zero
		for _, t := range trades {
			net = net.Add(t.NetPnL)
		}
		m.EndingCapital = in.InitialCapital.Add(net)
	}
	if m.EndingCapital.GreaterThan(m.PeakCapital) {
		m.PeakCapital = m.EndingCapital
	}
	m.TotalReturn = m.EndingCapital.Sub(in.InitialCapital)
	m.TotalReturnPercent = m.TotalReturn.Div(in.InitialCapital).Mul(hundred)

	if in.Commissions != nil {
		m.Commissions = *in.Commissions
	}
	if in.Slippage != nil {
		m.Slippage = *in.Slippage
	}

	m.setPeriod(trades, snaps)
	return m, nil
}

func filterTrades(trades []ledger.Trade, strategyID string) []ledger.Trade {
	if strategyID == "" {
		return trades
	}
	var out []ledger.Trade
	for _, t := range trades {
		if t.StrategyID == strategyID {
			out = append(out, t)
		}
	}
	return out
}

func (m *Metrics) tradeStats(trades []ledger.Trade) {
	total := decimal.Zero
	for _, t := range trades {
		m.Commissions = m.Commissions.Add(t.TotalCommission)
		m.Slippage = m.Slippage.Add(t.TotalSlippage)
		total = total.Add(t.NetPnL)

		if t.NetPnL.IsPositive() {
			m.Wins++
			if t.NetPnL.GreaterThan(m.LargestWin) {
				m.LargestWin = t.NetPnL
			}
		} else {
			m.Losses++
			if t.NetPnL.LessThan(m.LargestLoss) {
				m.LargestLoss = t.NetPnL
			}
		}
	}
	m.Trades = len(trades)
	if m.Trades > 0 {
		m.WinRate = float64(m.Wins) / float64(m.Trades)
		m.AverageProfit = total.Div(decimal.NewFromInt(int64(m.Trades)))
	}
}

func (m *Metrics) curveStats(snaps []ledger.Snapshot, riskFree, periods float64) {
	if len(snaps) == 0 {
		return
	}

	peak := m.PeakCapital
	returns := make([]float64, 0, len(snaps))
	prev := m.StartingCapital
	for _, s := range snaps {
		v := s.TotalValue
		if v.GreaterThan(peak) {
			peak = v
		}
		dd := v.Sub(peak)
		if dd.LessThan(m.MaxDrawdown) {
			m.MaxDrawdown = dd
		}
		// the deepest percentage can come from a different, lower peak
		if ddPct := dd.Div(peak).Mul(hundred); ddPct.LessThan(m.MaxDrawdownPercent) {
			m.MaxDrawdownPercent = ddPct
		}
		if prev.IsPositive() {
			returns = append(returns, v.Sub(prev).Div(prev).InexactFloat64())
		}
		prev = v
	}
	m.PeakCapital = peak

	if len(returns) < 2 {
		return
	}
	mean, sd := meanStd(returns)
	if sd == 0 {
		return
	}
	scale := math.Sqrt(periods)
	rf := riskFree / periods

	vol := sd * scale * 100
	sharpe := (mean - rf) / sd * scale
	m.Volatility, m.Sharpe = &vol, &sharpe

	var downside float64
	for _, r := range returns {
		if r < rf {
			downside += (r - rf) * (r - rf)
		}
	}
	if downside > 0 {
		sortino := (mean - rf) / math.Sqrt(downside/float64(len(returns))) * scale
		m.Sortino = &sortino
	}
}

func (m *Metrics) setPeriod(trades []ledger.Trade, snaps []ledger.Snapshot) {
	if len(snaps) > 0 {
		m.Start, m.End = snaps[0].Time, snaps[len(snaps)-1].Time
	}
	for _, t := range trades {
		if m.Start.IsZero() || t.EntryTime.Before(m.Start) {
			m.Start = t.EntryTime
		}
		if t.ExitTime.After(m.End) {
			m.End = t.ExitTime
		}
	}
	if !m.Start.IsZero() && m.End.After(m.Start) {
		m.Days = int(m.End.Sub(m.Start).Hours() / 24)
	}
}

// meanStd returns the mean and sample standard deviation.
func meanStd(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}
