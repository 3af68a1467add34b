package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func candles(sym string, closes ...float64) []Candle {
	out := make([]Candle, len(closes))
	for i, c := range closes {
		out[i] = Candle{
			Symbol: sym,
			Time:   day0.AddDate(0, 0, i),
			Open:   c - 1,
			High:   c + 1,
			Low:    c - 2,
			Close:  c,
			Volume: int64(1000 + i),
		}
	}
	return out
}

// countingSource returns a fixed price and counts calls.
type countingSource struct {
	calls atomic.Int32
	price decimal.Decimal
	fail  map[string]bool
}

func (s *countingSource) Quote(_ context.Context, symbol string) (Quote, error) {
	s.calls.Add(1)
	if s.fail[symbol] {
		return Quote{}, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	return Quote{Symbol: symbol, Price: s.price}, nil
}

func TestCacheHonoursTTL(t *testing.T) {
	src := &countingSource{price: decimal.NewFromInt(10)}
	now := day0
	c := NewCache(src, 30*time.Second).WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := c.Quote(ctx, "AAPL")
	require.NoError(t, err)
	_, err = c.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.calls.Load())

	now = now.Add(29 * time.Second)
	_, _ = c.Quote(ctx, "AAPL")
	assert.EqualValues(t, 1, src.calls.Load())

	now = now.Add(time.Second)
	_, _ = c.Quote(ctx, "AAPL")
	assert.EqualValues(t, 2, src.calls.Load())

	c.Invalidate("AAPL")
	_, _ = c.Quote(ctx, "AAPL")
	assert.EqualValues(t, 3, src.calls.Load())

	c.Clear()
	_, _ = c.Quote(ctx, "AAPL")
	assert.EqualValues(t, 4, src.calls.Load())
}

func TestCacheDefaultTTLAndErrors(t *testing.T) {
	src := &countingSource{fail: map[string]bool{"BAD": true}}
	c := NewCache(src, 0)
	assert.Equal(t, DefaultQuoteTTL, c.TTL())

	_, err := c.Quote(context.Background(), "BAD")
	assert.ErrorIs(t, err, ErrNoData)
	_, err = c.Quote(context.Background(), "BAD")
	assert.ErrorIs(t, err, ErrNoData)
	assert.EqualValues(t, 2, src.calls.Load(), "errors are not cached")
}

func TestQuotesSkipsFailures(t *testing.T) {
	src := &countingSource{price: decimal.NewFromInt(5), fail: map[string]bool{"ZZZ": true}}
	syms := []string{"A", "B", "C", "ZZZ", "D", "E", "F", "G", "H", "I"}

	got, err := Quotes(context.Background(), src, syms, nil)
	require.NoError(t, err)
	assert.Len(t, got, len(syms)-1)
	assert.NotContains(t, got, "ZZZ")
	assert.True(t, got["A"].Price.Equal(decimal.NewFromInt(5)))
}

func TestQuotesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Quotes(ctx, &countingSource{}, []string{"A"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// blockingSource tracks concurrency.
type blockingSource struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (s *blockingSource) Quote(_ context.Context, symbol string) (Quote, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return Quote{Symbol: symbol, Price: decimal.NewFromInt(1)}, nil
}

func TestQuotesBoundsConcurrency(t *testing.T) {
	src := &blockingSource{}
	var syms []string
	for i := 0; i < 30; i++ {
		syms = append(syms, fmt.Sprintf("S%d", i))
	}
	got, err := Quotes(context.Background(), src, syms, nil)
	require.NoError(t, err)
	assert.Len(t, got, 30)
	assert.LessOrEqual(t, src.peak, maxConcurrentQuotes)
}

func TestReplayFeed(t *testing.T) {
	f := NewReplayFeed(map[string][]Candle{
		"aapl": candles("AAPL", 10, 11, 12, 13),
		"MSFT": candles("MSFT", 20, 21, 22, 23)[1:],
	}, 1)
	ctx := context.Background()

	assert.Equal(t, day0.AddDate(0, 0, 1), f.Now())
	assert.Equal(t, 2, f.Remaining())

	q, err := f.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(11)))
	assert.InDelta(t, 1.0, q.DayChange, 1e-9)
	assert.InDelta(t, 10.0, q.DayChangePercent, 1e-9)

	q, err = f.Quote(ctx, "MSFT")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(21)))
	assert.Zero(t, q.DayChange)

	hist, err := f.History(ctx, "AAPL", day0.AddDate(-1, 0, 0), day0.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Len(t, hist, 2, "history stops at the cursor")

	require.True(t, f.Step())
	require.True(t, f.Step())
	assert.False(t, f.Step())
	q, _ = f.Quote(ctx, "AAPL")
	assert.True(t, q.Price.Equal(decimal.NewFromInt(13)))

	_, err = f.Quote(ctx, "NVDA")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestReplayFeedClampsWarmup(t *testing.T) {
	f := NewReplayFeed(map[string][]Candle{"A": candles("A", 1, 2)}, 10)
	assert.Equal(t, 0, f.Remaining())
	q, err := f.Quote(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(2)))

	empty := NewReplayFeed(nil, 0)
	assert.False(t, empty.Step())
	assert.True(t, empty.Now().IsZero())
}

func TestParquetStoreRoundTrip(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	// spans a year boundary
	var cs []Candle
	start := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		cs = append(cs, Candle{Symbol: "aapl", Time: start.AddDate(0, 0, i), Close: float64(100 + i), Volume: 7})
	}
	require.NoError(t, s.WriteCandles(ctx, cs))

	got, err := s.History(ctx, "AAPL", start, start.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, 104.0, got[4].Close)
	assert.True(t, got[2].Time.Equal(start.AddDate(0, 0, 2)))

	// overwrite one bar and add one
	require.NoError(t, s.WriteCandles(ctx, []Candle{
		{Symbol: "AAPL", Time: start.AddDate(0, 0, 4), Close: 999},
		{Symbol: "AAPL", Time: start.AddDate(0, 0, 5), Close: 105},
	}))
	got, err = s.History(ctx, "AAPL", start.AddDate(0, 0, 3), start.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 999.0, got[1].Close)

	syms, err := s.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, syms)

	none, err := s.History(ctx, "MSFT", start, start.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLoadReplayFeedFromStore(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, s.WriteCandles(ctx, candles("A", 1, 2, 3)))

	f, err := LoadReplayFeed(ctx, s, []string{"A"}, day0, day0.AddDate(0, 0, 5), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Remaining())
}

func TestReadCSV(t *testing.T) {
	in := strings.Join([]string{
		"time,symbol,open,high,low,close,volume",
		"2025-03-03,aapl,1,2,0.5,1.5,100",
		"",
		"2025-03-04T00:00:00Z,AAPL,1.5,2.5,1,2,",
	}, "\n")
	cs, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "AAPL", cs[0].Symbol)
	assert.Equal(t, int64(100), cs[0].Volume)
	assert.Equal(t, 2.0, cs[1].Close)
	assert.Len(t, BySymbol(cs)["AAPL"], 2)

	_, err = ReadCSV(strings.NewReader("yesterday,A,1,1,1,1\n"))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("2025-01-01,A,1,1\n"))
	assert.Error(t, err)
}

func TestCloses(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, Closes(candles("A", 1, 2, 3)))
}

var errDown = errors.New("down")
