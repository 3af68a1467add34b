package market

import (
	"context"
	"sync"
	"time"
)

// DefaultQuoteTTL is how long a cached quote is served before refetching.
const DefaultQuoteTTL = 60 * time.Second

// Cache serves quotes from src, refetching a symbol once its entry is older
// than the TTL. It is safe for concurrent use.
type Cache struct {
	src PriceSource
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cachedQuote
}

type cachedQuote struct {
	q  Quote
	at time.Time
}

// NewCache wraps src. A ttl <= 0 uses DefaultQuoteTTL.
func NewCache(src PriceSource, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	return &Cache{
		src:     src,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedQuote),
	}
}

// WithClock replaces the cache's time source and returns the cache.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// TTL returns the cache lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Quote returns a cached quote when fresh, otherwise fetches and stores it.
// Errors are not cached.
func (c *Cache) Quote(ctx context.Context, symbol string) (Quote, error) {
	c.mu.Lock()
	e, ok := c.entries[symbol]
	c.mu.Unlock()
	if ok && c.now().Sub(e.at) < c.ttl {
		return e.q, nil
	}

	q, err := c.src.Quote(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}

	c.mu.Lock()
	c.entries[symbol] = cachedQuote{q: q, at: c.now()}
	c.mu.Unlock()
	return q, nil
}

// Invalidate drops one symbol.
func (c *Cache) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.entries, symbol)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cachedQuote)
	c.mu.Unlock()
}
