package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Feed = (*ReplayFeed)(nil)

// ReplayFeed walks recorded candles one bar at a time. Quote returns the bar
// at the cursor; History never returns bars after it.
type ReplayFeed struct {
	mu     sync.Mutex
	series map[string][]Candle
	times  []time.Time
	pos    int
}

// NewReplayFeed builds a feed from per symbol candles. The cursor starts on
// bar index warmup (clamped), so strategies have history from the first quote.
func NewReplayFeed(series map[string][]Candle, warmup int) *ReplayFeed {
	f := &ReplayFeed{series: make(map[string][]Candle, len(series))}
	seen := make(map[int64]bool)
	for sym, cs := range series {
		cp := append([]Candle(nil), cs...)
		sort.Slice(cp, func(i, j int) bool { return cp[i].Time.Before(cp[j].Time) })
		f.series[strings.ToUpper(sym)] = cp
		for _, c := range cp {
			if !seen[c.Time.UnixNano()] {
				seen[c.Time.UnixNano()] = true
				f.times = append(f.times, c.Time)
			}
		}
	}
	sort.Slice(f.times, func(i, j int) bool { return f.times[i].Before(f.times[j]) })

	switch {
	case warmup < 0:
		warmup = 0
	case len(f.times) > 0 && warmup >= len(f.times):
		warmup = len(f.times) - 1
	}
	f.pos = warmup
	return f
}

// LoadReplayFeed reads the whole of [start, end] for symbols from src.
func LoadReplayFeed(ctx context.Context, src HistorySource, symbols []string, start, end time.Time, warmup int) (*ReplayFeed, error) {
	series := make(map[string][]Candle, len(symbols))
	for _, sym := range symbols {
		cs, err := src.History(ctx, sym, start, end)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", sym, err)
		}
		series[sym] = cs
	}
	return NewReplayFeed(series, warmup), nil
}

// Now returns the time of the current bar.
func (f *ReplayFeed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.times) == 0 {
		return time.Time{}
	}
	return f.times[f.pos]
}

// Step moves to the next bar. It returns false at the end of the data.
func (f *ReplayFeed) Step() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos+1 >= len(f.times) {
		return false
	}
	f.pos++
	return true
}

// Remaining is the number of Steps left.
func (f *ReplayFeed) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.times) == 0 {
		return 0
	}
	return len(f.times) - 1 - f.pos
}

// Quote returns the latest bar at or before the cursor.
func (f *ReplayFeed) Quote(_ context.Context, symbol string) (Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	symbol = strings.ToUpper(symbol)
	cs := f.visible(symbol)
	if len(cs) == 0 {
		return Quote{}, fmt.Errorf("replay quote %s: %w", symbol, ErrNoData)
	}
	last := cs[len(cs)-1]
	var prev *Candle
	if len(cs) > 1 {
		prev = &cs[len(cs)-2]
	}
	return quoteFromBars(symbol, last, prev, 0, last.Time), nil
}

// History returns bars in [start, end] that are not after the cursor.
func (f *ReplayFeed) History(_ context.Context, symbol string, start, end time.Time) ([]Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Candle
	for _, c := range f.visible(strings.ToUpper(symbol)) {
		if c.Time.Before(start) || c.Time.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *ReplayFeed) visible(symbol string) []Candle {
	cs := f.series[symbol]
	if len(f.times) == 0 {
		return nil
	}
	cur := f.times[f.pos]
	n := sort.Search(len(cs), func(i int) bool { return cs[i].Time.After(cur) })
	return cs[:n]
}
