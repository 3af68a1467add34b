package market

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentQuotes bounds in-flight requests to a provider.
const maxConcurrentQuotes = 8

// Quotes fetches symbols concurrently. Symbols that fail are logged and left
// out of the result; only a cancelled context is returned as an error.
func Quotes(ctx context.Context, src PriceSource, symbols []string, log *slog.Logger) (map[string]Quote, error) {
	if log == nil {
		log = slog.Default()
	}

	var (
		mu  sync.Mutex
		out = make(map[string]Quote, len(symbols))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQuotes)
	for _, sym := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			q, err := src.Quote(gctx, sym)
			if err != nil {
				log.Warn("quote fetch failed", "symbol", sym, "error", err)
				return nil
			}
			mu.Lock()
			out[sym] = q
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
