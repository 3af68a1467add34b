// Package session drives the ledger from live or replayed market data: each
// iteration fetches quotes and sentiment, runs every signal producer over
// every symbol, executes the resulting orders and records a snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/risk"
	"github.com/rustyeddy/papertrader/sentiment"
	"github.com/rustyeddy/papertrader/strategies"
	"github.com/shopspring/decimal"
)

// Stepper is implemented by feeds that advance on demand, such as
// market.ReplayFeed. The runner steps them between iterations instead of
// relying on wall clock time.
type Stepper interface {
	Step() bool
}

// Options controls the trading loop.
type Options struct {
	Symbols    []string
	Iterations int
	Interval   time.Duration

	// HistoryDays is how far back history is requested for each symbol.
	HistoryDays int

	// MaxPositionSize is the fraction of cash committed to one new position.
	MaxPositionSize decimal.Decimal
}

// Runner owns one trading session.
type Runner struct {
	Ledger     *ledger.Ledger
	Prices     market.PriceSource
	History    market.HistorySource
	Sentiment  sentiment.Provider // optional
	Strategies []strategies.SignalProducer
	Journal    journal.Journal // optional
	Options    Options
	Log        *slog.Logger

	// Sleep waits between iterations; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	iteration int
	stats     counters
	last      *ledger.Snapshot
	snaps     []ledger.Snapshot
}

type counters struct {
	signals, fills, rejections int
}

func (r *Runner) validate() error {
	if r.Ledger == nil {
		return errors.New("session: Ledger is required")
	}
	if r.Prices == nil {
		return errors.New("session: Prices is required")
	}
	if r.History == nil {
		return errors.New("session: History is required")
	}
	if len(r.Strategies) == 0 {
		return errors.New("session: at least one strategy is required")
	}
	if len(r.Options.Symbols) == 0 {
		return errors.New("session: no symbols")
	}
	if r.Options.Iterations <= 0 {
		return fmt.Errorf("session: iterations must be positive, got %d", r.Options.Iterations)
	}
	if !r.Options.MaxPositionSize.IsPositive() || r.Options.MaxPositionSize.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("session: max position size must be in (0, 1], got %s", r.Options.MaxPositionSize)
	}
	return nil
}

func (r *Runner) init() {
	if r.Log == nil {
		r.Log = slog.Default()
	}
	if r.Journal == nil {
		r.Journal = journal.Nop{}
	}
	if r.Sleep == nil {
		r.Sleep = sleep
	}
	if r.Options.HistoryDays <= 0 {
		r.Options.HistoryDays = 60
	}
}

// Run executes Options.Iterations iterations, waiting Options.Interval
// between them, and returns the session summary. A replay feed that runs out
// of bars ends the session early. Cancelling ctx stops the loop and still
// returns the summary so far.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if err := r.validate(); err != nil {
		return Summary{}, err
	}
	r.init()

	started := time.Now()
	r.Log.Info("session starting",
		"iterations", r.Options.Iterations,
		"interval", r.Options.Interval,
		"symbols", r.Options.Symbols,
		"strategies", len(r.Strategies),
		"commission_rate", r.Ledger.Config().CommissionRate,
		"slippage_rate", r.Ledger.Config().SlippageRate)

	stepper, _ := r.Prices.(Stepper)
	var runErr error

	for i := 0; i < r.Options.Iterations; i++ {
		if err := r.RunIteration(ctx); err != nil {
			runErr = err
			break
		}
		if i == r.Options.Iterations-1 {
			break
		}
		if err := r.Sleep(ctx, r.Options.Interval); err != nil {
			r.Log.Info("session interrupted", "error", err)
			break
		}
		if stepper != nil && !stepper.Step() {
			r.Log.Info("replay data exhausted", "iterations", r.iteration)
			break
		}
	}

	sum := r.Summary()
	sum.Elapsed = time.Since(started)
	r.logSummary(sum)

	if runErr != nil && errors.Is(runErr, context.Canceled) {
		return sum, nil
	}
	return sum, runErr
}

// RunIteration performs one fetch, analyze, execute and snapshot cycle.
func (r *Runner) RunIteration(ctx context.Context) error {
	if r.Log == nil {
		r.init()
	}
	r.iteration++
	log := r.Log.With("iteration", r.iteration)

	quotes, err := market.Quotes(ctx, r.Prices, r.Options.Symbols, log)
	if err != nil {
		return err
	}
	log.Info("fetched market data", "symbols", len(quotes))

	reading := r.sentiment(ctx, log)

	signals := r.analyze(ctx, quotes, reading, log)
	log.Info("generated signals", "count", len(signals))

	for _, sig := range signals {
		if err := r.execute(ctx, sig, quotes[sig.Symbol], log); err != nil {
			return err
		}
	}

	return r.snapshot(ctx, quotes, log)
}

func (r *Runner) sentiment(ctx context.Context, log *slog.Logger) *sentiment.Reading {
	if r.Sentiment == nil {
		return nil
	}
	rd, err := r.Sentiment.Sentiment(ctx)
	if err != nil {
		log.Warn("sentiment unavailable", "error", err)
		return nil
	}
	if score, ok := rd.Score(); ok {
		log.Info("overall sentiment", "score", fmt.Sprintf("%.2f", score))
	}
	return &rd
}

func (r *Runner) analyze(ctx context.Context, quotes map[string]market.Quote, reading *sentiment.Reading, log *slog.Logger) []strategies.Signal {
	var out []strategies.Signal
	for _, sym := range r.Options.Symbols {
		q, ok := quotes[sym]
		if !ok {
			continue
		}
		end := q.Time
		if end.IsZero() {
			end = time.Now().UTC()
		}
		start := end.AddDate(0, 0, -r.Options.HistoryDays)
		history, err := r.History.History(ctx, sym, start, end)
		if err != nil {
			log.Warn("history unavailable", "symbol", sym, "error", err)
			continue
		}

		for _, sp := range r.Strategies {
			sig, ok := sp.Analyze(sym, q, history, reading)
			if !ok {
				continue
			}
			r.stats.signals++
			log.Info("signal",
				"strategy", sp.Name(),
				"action", sig.Action,
				"symbol", sym,
				"confidence", fmt.Sprintf("%.2f%%", sig.Confidence*100),
				"reason", sig.Reason)
			out = append(out, sig)
		}
	}
	return out
}

// execute turns a signal into at most one order. BUY opens a position only
// when flat for the signal's strategy and symbol; SELL closes the whole
// position.
func (r *Runner) execute(ctx context.Context, sig strategies.Signal, q market.Quote, log *slog.Logger) error {
	if !q.Price.IsPositive() {
		return nil
	}
	key := ledger.Key{StrategyID: sig.StrategyID, Symbol: sig.Symbol}
	pos, held := r.Ledger.Position(key)

	var req ledger.OrderRequest
	switch sig.Action {
	case strategies.Buy:
		if held && pos.Quantity.IsPositive() {
			return nil
		}
		qty := risk.Calculate(risk.Inputs{
			Cash:     r.Ledger.Cash(),
			Fraction: r.Options.MaxPositionSize,
			Price:    q.Price,
		}).Units
		if !qty.IsPositive() {
			log.Debug("position size rounds to zero", "symbol", sig.Symbol, "price", q.Price)
			return nil
		}
		req = ledger.OrderRequest{Symbol: sig.Symbol, StrategyID: sig.StrategyID, Side: ledger.Long, Quantity: qty}

	case strategies.Sell:
		if !held || !pos.Quantity.IsPositive() {
			return nil
		}
		req = ledger.OrderRequest{Symbol: sig.Symbol, StrategyID: sig.StrategyID, Side: ledger.Short, Quantity: pos.Quantity}

	default:
		return nil
	}

	o, err := r.Ledger.CreateOrder(req)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	if err := r.Journal.RecordOrder(ctx, *o); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	exec, err := r.Ledger.ExecuteOrder(o, q.Price)
	if err != nil {
		return fmt.Errorf("execute order %s: %w", o.ID, err)
	}
	if err := journal.RecordExecution(ctx, r.Journal, exec); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	if exec.Filled() {
		r.stats.fills++
		verb := "bought"
		if req.Side == ledger.Short {
			verb = "sold"
		}
		log.Info(verb,
			"symbol", sig.Symbol,
			"qty", req.Quantity,
			"price", exec.Order.FillPrice.StringFixed(2),
			"value", exec.Order.Value().StringFixed(2))
	} else {
		r.stats.rejections++
		log.Warn("order not filled", "symbol", sig.Symbol, "outcome", exec.Outcome, "reason", exec.Reason)
	}
	return nil
}

func (r *Runner) snapshot(ctx context.Context, quotes map[string]market.Quote, log *slog.Logger) error {
	prices := make(map[string]decimal.Decimal, len(quotes))
	for sym, q := range quotes {
		prices[sym] = q.Price
	}
	snap := r.Ledger.Snapshot(prices)
	r.last = &snap
	r.snaps = append(r.snaps, snap)
	if err := r.Journal.RecordSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	log.Info("portfolio status",
		"cash", snap.Cash.StringFixed(2),
		"positions_value", snap.PositionsValue.StringFixed(2),
		"total_value", snap.TotalValue.StringFixed(2),
		"pnl", snap.TotalPnL.StringFixed(2),
		"pnl_pct", snap.TotalPnLPercent.StringFixed(2),
		"open_positions", snap.NumPositions,
		"trades", len(r.Ledger.Trades()))

	for _, p := range r.Ledger.Positions() {
		mark, ok := prices[p.Symbol]
		if !ok {
			mark = p.AveragePrice
		}
		upnl := p.UnrealizedPnL(mark)
		pct := decimal.Zero
		if basis := p.CostBasis(); basis.IsPositive() {
			pct = upnl.Div(basis).Mul(decimal.NewFromInt(100))
		}
		log.Info("open position",
			"strategy", p.StrategyID,
			"symbol", p.Symbol,
			"qty", p.Quantity,
			"avg", p.AveragePrice.StringFixed(2),
			"mark", mark.StringFixed(2),
			"unrealized", upnl.StringFixed(2),
			"unrealized_pct", pct.StringFixed(2))
	}
	return nil
}

// Snapshots returns every snapshot taken so far, oldest first.
func (r *Runner) Snapshots() []ledger.Snapshot {
	return append([]ledger.Snapshot(nil), r.snaps...)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
