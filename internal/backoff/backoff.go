// Package backoff retries flaky calls to external data providers.
package backoff

import (
	"context"
	"time"
)

// Retry calls fn up to attempts times, doubling the delay after each
// failure. It returns nil on the first success, ctx.Err() if the context ends
// while waiting, or the last error from fn.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
