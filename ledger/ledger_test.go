package ledger

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(t *testing.T, capital, commission, slippage string) *Ledger {
	t.Helper()
	clock := time.Date(2025, 1, 2, 14, 30, 0, 0, time.UTC)
	l, err := New(Config{
		InitialCapital: d(capital),
		CommissionRate: d(commission),
		SlippageRate:   d(slippage),
	}, WithLogger(quietLogger()), WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	require.NoError(t, err)
	return l
}

func buy(t *testing.T, l *Ledger, sym, qty string) *Order {
	t.Helper()
	o, err := l.CreateOrder(OrderRequest{Symbol: sym, StrategyID: "s1", Side: Long, Quantity: d(qty)})
	require.NoError(t, err)
	return o
}

func sell(t *testing.T, l *Ledger, sym, qty string) *Order {
	t.Helper()
	o, err := l.CreateOrder(OrderRequest{Symbol: sym, StrategyID: "s1", Side: Short, Quantity: d(qty)})
	require.NoError(t, err)
	return o
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", DefaultConfig(), true},
		{"zero costs", Config{InitialCapital: d("10"), CommissionRate: d("0"), SlippageRate: d("0")}, true},
		{"zero capital", Config{InitialCapital: d("0")}, false},
		{"negative commission", Config{InitialCapital: d("10"), CommissionRate: d("-0.1")}, false},
		{"slippage of one", Config{InitialCapital: d("10"), SlippageRate: d("1")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, WithLogger(quietLogger()))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestCreateOrder(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")

	o := buy(t, l, "AAPL", "3")
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, Market, o.Type)
	assert.Contains(t, o.ID, "ORD-")
	assert.False(t, o.CreatedAt.IsZero())

	got, ok := l.Order(o.ID)
	require.True(t, ok)
	assert.Equal(t, o.ID, got.ID)
	assert.Len(t, l.Orders(), 1)
	assert.True(t, l.Cash().Equal(d("1000")), "creating an order moves no cash")
}

func TestCreateOrderInvalid(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	neg := d("-1")

	tests := []struct {
		name string
		req  OrderRequest
		err  error
	}{
		{"zero quantity", OrderRequest{Symbol: "A", StrategyID: "s", Side: Long, Quantity: d("0")}, ErrInvalidQuantity},
		{"negative quantity", OrderRequest{Symbol: "A", StrategyID: "s", Side: Long, Quantity: d("-2")}, ErrInvalidQuantity},
		{"no symbol", OrderRequest{StrategyID: "s", Side: Long, Quantity: d("1")}, ErrInvalidOrder},
		{"no strategy", OrderRequest{Symbol: "A", Side: Long, Quantity: d("1")}, ErrInvalidOrder},
		{"bad side", OrderRequest{Symbol: "A", StrategyID: "s", Side: "UP", Quantity: d("1")}, ErrInvalidOrder},
		{"bad type", OrderRequest{Symbol: "A", StrategyID: "s", Side: Long, Type: "STOP", Quantity: d("1")}, ErrInvalidOrder},
		{"negative limit", OrderRequest{Symbol: "A", StrategyID: "s", Side: Long, Type: Limit, Quantity: d("1"), LimitPrice: &neg}, ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := l.CreateOrder(tt.req)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, o)
		})
	}
	assert.Empty(t, l.Orders())
}

func TestInsufficientCapitalRejectsBuy(t *testing.T) {
	l := newTestLedger(t, "100", "0.001", "0.0005")
	o := buy(t, l, "AAPL", "1")

	exec, err := l.ExecuteOrder(o, d("175.50"))
	require.NoError(t, err)

	assert.False(t, exec.Filled())
	assert.Equal(t, OutcomeRejected, exec.Outcome)
	assert.Contains(t, exec.Reason, ReasonInsufficientCash)
	assert.Equal(t, StatusRejected, o.Status)
	assert.True(t, l.Cash().Equal(d("100")))
	assert.Empty(t, l.Positions())
	assert.True(t, l.Totals().Commissions.IsZero())
}

func TestSecondBuyCheckedAgainstCurrentCash(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")

	first := buy(t, l, "AAPL", "5")
	exec, err := l.ExecuteOrder(first, d("100"))
	require.NoError(t, err)
	require.True(t, exec.Filled())

	pos, ok := l.Position(Key{StrategyID: "s1", Symbol: "AAPL"})
	require.True(t, ok)
	assert.True(t, pos.Quantity.Equal(d("5")))
	assert.True(t, pos.AveragePrice.Equal(d("100")))
	assert.True(t, l.Cash().Equal(d("500")))

	second := buy(t, l, "AAPL", "5")
	exec, err = l.ExecuteOrder(second, d("120"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, exec.Outcome)

	pos, _ = l.Position(Key{StrategyID: "s1", Symbol: "AAPL"})
	assert.True(t, pos.Quantity.Equal(d("5")))
	assert.True(t, pos.AveragePrice.Equal(d("100")))
	assert.True(t, l.Cash().Equal(d("500")))
}

func TestSellClosesPositionAndRecordsTrade(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")

	_, err := l.ExecuteOrder(buy(t, l, "AAPL", "5"), d("100"))
	require.NoError(t, err)

	exit := sell(t, l, "AAPL", "5")
	exec, err := l.ExecuteOrder(exit, d("130"))
	require.NoError(t, err)
	require.True(t, exec.Filled())
	assert.True(t, exec.Closed)
	assert.Nil(t, exec.Position)
	require.NotNil(t, exec.Trade)

	tr := exec.Trade
	assert.Contains(t, tr.ID, "TRADE-")
	assert.True(t, tr.GrossPnL.Equal(d("150")), "gross %s", tr.GrossPnL)
	assert.True(t, tr.NetPnL.Equal(d("150")), "net %s", tr.NetPnL)
	assert.True(t, tr.PnLPercent.Equal(d("30")), "pct %s", tr.PnLPercent)
	assert.True(t, tr.EntryQuantity.Equal(d("5")))
	assert.True(t, tr.ExitPrice.Equal(d("130")))
	assert.Equal(t, exit.ID, tr.ExitOrderID)
	assert.False(t, tr.IsOpen)

	_, ok := l.Position(Key{StrategyID: "s1", Symbol: "AAPL"})
	assert.False(t, ok)
	assert.Len(t, l.Trades(), 1)
	assert.True(t, l.Cash().Equal(d("1150")))
}

func TestFrictionsAndNetPnLIdentity(t *testing.T) {
	l := newTestLedger(t, "10000", "0.001", "0.0005")

	entry := buy(t, l, "MSFT", "10")
	exec, err := l.ExecuteOrder(entry, d("200"))
	require.NoError(t, err)
	require.True(t, exec.Filled())

	// buy fills above the market, sell below
	assert.True(t, entry.FillPrice.Equal(d("200.1")))
	assert.True(t, entry.Slippage.Equal(d("1")))
	assert.True(t, entry.Commission.Equal(d("2.001")))
	assert.True(t, l.Cash().Equal(d("10000").Sub(d("2001")).Sub(d("2.001"))))

	exit := sell(t, l, "MSFT", "10")
	exec, err = l.ExecuteOrder(exit, d("210"))
	require.NoError(t, err)
	require.True(t, exec.Filled())
	assert.True(t, exit.FillPrice.Equal(d("209.895")))

	tr := exec.Trade
	require.NotNil(t, tr)
	assert.True(t, tr.TotalCommission.Equal(entry.Commission.Add(exit.Commission)))
	assert.True(t, tr.TotalSlippage.Equal(entry.Slippage.Add(exit.Slippage)))
	assert.True(t, tr.NetPnL.Equal(tr.GrossPnL.Sub(tr.TotalCommission).Sub(tr.TotalSlippage)))

	totals := l.Totals()
	assert.True(t, totals.Commissions.Equal(tr.TotalCommission))
	assert.True(t, totals.Slippage.Equal(tr.TotalSlippage))
}

func TestAveragePriceIsVolumeWeighted(t *testing.T) {
	l := newTestLedger(t, "1000000", "0", "0")
	fills := []struct{ qty, price string }{
		{"3", "10"}, {"7", "12.5"}, {"1", "9"}, {"0.5", "11.25"}, {"20", "10.01"},
	}
	sumQty, sumCost := decimal.Zero, decimal.Zero
	for _, f := range fills {
		exec, err := l.ExecuteOrder(buy(t, l, "X", f.qty), d(f.price))
		require.NoError(t, err)
		require.True(t, exec.Filled())
		sumQty = sumQty.Add(d(f.qty))
		sumCost = sumCost.Add(d(f.qty).Mul(d(f.price)))
	}
	pos, ok := l.Position(Key{StrategyID: "s1", Symbol: "X"})
	require.True(t, ok)
	assert.True(t, pos.Quantity.Equal(sumQty))
	want := sumCost.Div(sumQty)
	assert.True(t, pos.AveragePrice.Sub(want).Abs().LessThan(d("0.000000001")), "avg %s want %s", pos.AveragePrice, want)
}

func TestManySmallAddsStayStable(t *testing.T) {
	l := newTestLedger(t, "1000000", "0", "0")
	for i := 0; i < 500; i++ {
		_, err := l.ExecuteOrder(buy(t, l, "X", "0.1"), d("33.33"))
		require.NoError(t, err)
	}
	pos, _ := l.Position(Key{StrategyID: "s1", Symbol: "X"})
	assert.True(t, pos.Quantity.Equal(d("50")))
	assert.True(t, pos.AveragePrice.Equal(d("33.33")), "avg %s", pos.AveragePrice)
}

func TestExecuteIsIdempotent(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")

	filled := buy(t, l, "A", "1")
	_, err := l.ExecuteOrder(filled, d("10"))
	require.NoError(t, err)
	cash := l.Cash()

	exec, err := l.ExecuteOrder(filled, d("5"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPending, exec.Outcome)
	assert.False(t, exec.Filled())
	assert.True(t, filled.FillPrice.Equal(d("10")))
	assert.True(t, l.Cash().Equal(cash))

	rejected := buy(t, l, "A", "1000")
	exec, _ = l.ExecuteOrder(rejected, d("10"))
	require.Equal(t, OutcomeRejected, exec.Outcome)
	exec, err = l.ExecuteOrder(rejected, d("0.01"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPending, exec.Outcome)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.True(t, l.Cash().Equal(cash))
}

func TestLimitOrders(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	limit := d("50")

	o, err := l.CreateOrder(OrderRequest{Symbol: "A", StrategyID: "s1", Side: Long, Type: Limit, Quantity: d("2"), LimitPrice: &limit})
	require.NoError(t, err)

	exec, err := l.ExecuteOrder(o, d("51"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeferred, exec.Outcome)
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, l.Cash().Equal(d("1000")))
	assert.Len(t, l.PendingOrders(), 1)

	exec, err = l.ExecuteOrder(o, d("50"))
	require.NoError(t, err)
	assert.True(t, exec.Filled())

	sellLimit := d("60")
	s, err := l.CreateOrder(OrderRequest{Symbol: "A", StrategyID: "s1", Side: Short, Type: Limit, Quantity: d("2"), LimitPrice: &sellLimit})
	require.NoError(t, err)
	exec, _ = l.ExecuteOrder(s, d("59.99"))
	assert.Equal(t, OutcomeDeferred, exec.Outcome)
	exec, _ = l.ExecuteOrder(s, d("61"))
	assert.True(t, exec.Filled())
	assert.True(t, exec.Closed)

	noLimit, err := l.CreateOrder(OrderRequest{Symbol: "B", StrategyID: "s1", Side: Long, Type: Limit, Quantity: d("1")})
	require.NoError(t, err)
	exec, _ = l.ExecuteOrder(noLimit, d("1"))
	assert.Equal(t, OutcomeRejected, exec.Outcome)
	assert.Equal(t, ReasonNoLimitPrice, noLimit.RejectReason)
}

func TestSellWithoutPositionIsRejected(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")

	o := sell(t, l, "GHOST", "1")
	exec, err := l.ExecuteOrder(o, d("10"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, exec.Outcome)
	assert.Equal(t, ReasonNoPosition, o.RejectReason)
	assert.True(t, l.Cash().Equal(d("1000")))
}

func TestOversellIsRejected(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	_, err := l.ExecuteOrder(buy(t, l, "A", "2"), d("10"))
	require.NoError(t, err)

	o := sell(t, l, "A", "3")
	exec, err := l.ExecuteOrder(o, d("10"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, exec.Outcome)
	assert.Contains(t, o.RejectReason, ReasonOversell)

	pos, ok := l.Position(Key{StrategyID: "s1", Symbol: "A"})
	require.True(t, ok)
	assert.True(t, pos.Quantity.Equal(d("2")))
	assert.True(t, l.Cash().Equal(d("980")))
}

func TestPartialSellKeepsPosition(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	_, err := l.ExecuteOrder(buy(t, l, "A", "4"), d("10"))
	require.NoError(t, err)

	exec, err := l.ExecuteOrder(sell(t, l, "A", "1"), d("12"))
	require.NoError(t, err)
	require.True(t, exec.Filled())
	assert.False(t, exec.Closed)
	require.NotNil(t, exec.Position)
	assert.True(t, exec.Position.Quantity.Equal(d("3")))
	assert.True(t, exec.Position.AveragePrice.Equal(d("10")))
	assert.Empty(t, l.Trades())
}

func TestPositionsAreKeyedByStrategy(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	for _, sid := range []string{"b", "a"} {
		o, err := l.CreateOrder(OrderRequest{Symbol: "A", StrategyID: sid, Side: Long, Quantity: d("1")})
		require.NoError(t, err)
		_, err = l.ExecuteOrder(o, d("10"))
		require.NoError(t, err)
	}
	ps := l.Positions()
	require.Len(t, ps, 2)
	assert.Equal(t, "a", ps[0].StrategyID)
	assert.Equal(t, "b", ps[1].StrategyID)
}

func TestExecuteInvalidInput(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	o := buy(t, l, "A", "1")

	_, err := l.ExecuteOrder(nil, d("1"))
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = l.ExecuteOrder(o, d("0"))
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = l.ExecuteOrder(o, d("-3"))
	assert.ErrorIs(t, err, ErrInvalidPrice)
	assert.Equal(t, StatusPending, o.Status)

	other := newTestLedger(t, "1000", "0", "0")
	_, err = other.ExecuteOrder(o, d("1"))
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestExecuteSyncsCallerCopy(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	o := buy(t, l, "A", "1")
	cp := *o

	exec, err := l.ExecuteOrder(&cp, d("10"))
	require.NoError(t, err)
	require.True(t, exec.Filled())
	assert.Equal(t, StatusFilled, cp.Status)
	assert.Equal(t, StatusFilled, exec.Order.Status)
	// o is another copy; only the one passed in is synced
	assert.Equal(t, StatusPending, o.Status)

	stored, ok := l.Order(o.ID)
	require.True(t, ok)
	assert.Equal(t, StatusFilled, stored.Status)
}

func TestCreateOrderReturnsCopy(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	o := buy(t, l, "A", "5")
	exec, err := l.ExecuteOrder(o, d("100"))
	require.NoError(t, err)
	require.True(t, exec.Filled())
	require.True(t, l.Cash().Equal(d("500")))
	assert.True(t, exec.Order.Value().Equal(d("500")))
	assert.True(t, l.Config().InitialCapital.Equal(d("1000")))

	o.Quantity = d("1")
	o.Status = StatusPending

	stored, ok := l.Order(o.ID)
	require.True(t, ok)
	assert.Equal(t, StatusFilled, stored.Status)
	assert.True(t, stored.Quantity.Equal(d("5")))

	exec, err = l.ExecuteOrder(o, d("100"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPending, exec.Outcome)
	assert.Equal(t, StatusFilled, o.Status, "caller copy resynced")
	assert.True(t, l.Cash().Equal(d("500")))
	pos, _ := l.Position(Key{StrategyID: "s1", Symbol: "A"})
	assert.True(t, pos.Quantity.Equal(d("5")))
}

func TestExecuteWhileCallerReadsOwnCopy(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	o := buy(t, l, "A", "1")
	cp := *o

	done := make(chan Execution)
	go func() {
		exec, _ := l.ExecuteOrder(&cp, d("10"))
		done <- exec
	}()
	// o is not shared with the ledger
	assert.Equal(t, StatusPending, o.Status)
	exec := <-done
	assert.True(t, exec.Filled())
}

func TestCancelOrder(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	o := buy(t, l, "A", "1")

	require.NoError(t, l.CancelOrder(o.ID))
	stored, _ := l.Order(o.ID)
	assert.Equal(t, StatusCancelled, stored.Status)
	assert.True(t, stored.Status.Terminal())
	assert.ErrorIs(t, l.CancelOrder(o.ID), ErrOrderNotPending)
	assert.ErrorIs(t, l.CancelOrder("ORD-nope"), ErrUnknownOrder)

	exec, err := l.ExecuteOrder(o, d("10"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPending, exec.Outcome)
}

func TestSnapshotOmitsUnpricedPositions(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	_, err := l.ExecuteOrder(buy(t, l, "A", "2"), d("100"))
	require.NoError(t, err)
	_, err = l.ExecuteOrder(buy(t, l, "B", "1"), d("300"))
	require.NoError(t, err)

	snap := l.Snapshot(map[string]decimal.Decimal{"A": d("150")})
	assert.True(t, snap.Cash.Equal(d("500")))
	assert.True(t, snap.PositionsValue.Equal(d("300")))
	assert.True(t, snap.TotalValue.Equal(d("800")))
	assert.True(t, snap.TotalPnL.Equal(d("-200")))
	assert.True(t, snap.TotalPnLPercent.Equal(d("-20")))
	assert.Equal(t, 2, snap.NumPositions)
}

func TestPeakAndDrawdown(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	assert.True(t, l.MaxDrawdown().IsZero())

	_, err := l.ExecuteOrder(buy(t, l, "A", "10"), d("50"))
	require.NoError(t, err)

	l.Snapshot(map[string]decimal.Decimal{"A": d("70")})
	assert.True(t, l.Totals().PeakValue.Equal(d("1200")))
	assert.True(t, l.MaxDrawdown().IsZero())

	l.Snapshot(map[string]decimal.Decimal{"A": d("40")})
	assert.True(t, l.Totals().PeakValue.Equal(d("1200")), "peak never decreases")
	assert.True(t, l.MaxDrawdown().Equal(d("-25")), "dd %s", l.MaxDrawdown())
}

func TestDrawdownFallsBackToAveragePrice(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	_, err := l.ExecuteOrder(buy(t, l, "A", "10"), d("50"))
	require.NoError(t, err)
	// no prices seen: A marked at cost, value equals capital
	assert.True(t, l.MaxDrawdown().IsZero())
}

func TestReset(t *testing.T) {
	l := newTestLedger(t, "1000", "0.001", "0")
	_, err := l.ExecuteOrder(buy(t, l, "A", "1"), d("10"))
	require.NoError(t, err)
	l.Snapshot(map[string]decimal.Decimal{"A": d("900")})

	l.Reset()
	assert.True(t, l.Cash().Equal(d("1000")))
	assert.Empty(t, l.Orders())
	assert.Empty(t, l.Positions())
	assert.Empty(t, l.Trades())
	totals := l.Totals()
	assert.True(t, totals.Commissions.IsZero())
	assert.True(t, totals.PeakValue.Equal(d("1000")))
}

func TestConcurrentBuysNeverOverdraw(t *testing.T) {
	l := newTestLedger(t, "1000", "0.001", "0.0005")
	orders := make([]*Order, 40)
	for i := range orders {
		orders[i] = buy(t, l, "A", "1")
	}

	var wg sync.WaitGroup
	for _, o := range orders {
		wg.Add(1)
		go func(o *Order) {
			defer wg.Done()
			_, _ = l.ExecuteOrder(o, d("99"))
		}(o)
	}
	wg.Wait()

	assert.False(t, l.Cash().IsNegative())
	filled := 0
	for _, o := range l.Orders() {
		if o.Status == StatusFilled {
			filled++
		}
	}
	assert.Equal(t, 10, filled)
	pos, _ := l.Position(Key{StrategyID: "s1", Symbol: "A"})
	assert.True(t, pos.Quantity.Equal(decimal.NewFromInt(int64(filled))))
}

func TestClosePositionWithoutEntryRecordsNothing(t *testing.T) {
	l := newTestLedger(t, "1000", "0", "0")
	exit := &Order{ID: "ORD-x", StrategyID: "s1", Symbol: "A", Side: Short,
		Quantity: d("1"), Status: StatusFilled, FillPrice: d("10")}
	pos := Position{StrategyID: "s1", Symbol: "A", Side: Long, Quantity: d("1"), AveragePrice: d("8")}

	assert.Nil(t, l.closePosition(exit, pos, d("1")))
	assert.Empty(t, l.Trades())
}
