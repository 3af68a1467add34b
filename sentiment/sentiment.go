// Package sentiment provides market sentiment readings for signal
// producers. The ledger never sees sentiment.
package sentiment

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Reading is one sentiment observation. Nil fields are unknown.
type Reading struct {
	Time time.Time
	// FearGreed is the Fear & Greed index, 0 (extreme fear) to 100 (extreme greed).
	FearGreed *float64
	// Overall is the combined score in [-1, 1].
	Overall *float64
}

// Score returns Overall, or 0 and false when unknown.
func (r *Reading) Score() (float64, bool) {
	if r == nil || r.Overall == nil {
		return 0, false
	}
	return *r.Overall, true
}

// Provider fetches the current reading.
type Provider interface {
	Sentiment(ctx context.Context) (Reading, error)
}

// Static always returns the same overall score.
type Static struct {
	Value float64
}

func (s Static) Sentiment(context.Context) (Reading, error) {
	v := clamp(s.Value)
	return Reading{Time: time.Now().UTC(), Overall: &v}, nil
}

// DefaultTTL is how long Cached keeps a reading.
const DefaultTTL = 5 * time.Minute

// Cached wraps a Provider with a TTL. When the provider fails it returns a
// neutral reading instead of an error and does not cache it.
type Cached struct {
	p   Provider
	ttl time.Duration
	now func() time.Time
	log *slog.Logger

	mu   sync.Mutex
	last *Reading
	at   time.Time
}

// NewCached wraps p. A ttl <= 0 uses DefaultTTL.
func NewCached(p Provider, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cached{p: p, ttl: ttl, now: time.Now, log: slog.Default()}
}

// WithClock replaces the time source and returns c.
func (c *Cached) WithClock(now func() time.Time) *Cached {
	c.now = now
	return c
}

func (c *Cached) Sentiment(ctx context.Context) (Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last != nil && c.now().Sub(c.at) < c.ttl {
		return *c.last, nil
	}

	r, err := c.p.Sentiment(ctx)
	if err != nil {
		c.log.Warn("sentiment unavailable, using neutral", "error", err)
		zero := 0.0
		return Reading{Time: c.now().UTC(), Overall: &zero}, nil
	}
	c.last = &r
	c.at = c.now()
	if s, ok := r.Score(); ok {
		c.log.Info("sentiment fetched", "overall", s)
	}
	return r, nil
}

// Clear drops the cached reading.
func (c *Cached) Clear() {
	c.mu.Lock()
	c.last = nil
	c.mu.Unlock()
}

func clamp(v float64) float64 {
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	}
	return v
}
