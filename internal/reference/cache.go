package reference

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

// CachedReader wraps a Reader and serves both tables from memory until the
// TTL expires. Both tables are refreshed together so a cached pair is always
// consistent.
type CachedReader struct {
	inner Reader
	ttl   time.Duration
	clock clockwork.Clock

	mu        sync.Mutex
	provinces []domain.Province
	districts []domain.District
	expires   time.Time
	loaded    bool
}

// NewCachedReader creates a cache decorator around a reader. A nil clock
// uses the real clock.
func NewCachedReader(inner Reader, ttl time.Duration, clock clockwork.Clock) *CachedReader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedReader{inner: inner, ttl: ttl, clock: clock}
}

func (c *CachedReader) Provinces(ctx context.Context) ([]domain.Province, error) {
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provinces, nil
}

func (c *CachedReader) Districts(ctx context.Context) ([]domain.District, error) {
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.districts, nil
}

// Invalidate drops the cached tables. Call it after writing reference rows.
func (c *CachedReader) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.provinces, c.districts = nil, nil
}

func (c *CachedReader) refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded && c.clock.Now().Before(c.expires) {
		return nil
	}
	provinces, err := c.inner.Provinces(ctx)
	if err != nil {
		return err
	}
	districts, err := c.inner.Districts(ctx)
	if err != nil {
		return err
	}
	// Empty tables are not cached so a reader that runs before reference
	// init picks up the rows on its next call.
	if len(provinces) == 0 {
		c.loaded = false
		c.provinces, c.districts = provinces, districts
		return nil
	}
	c.provinces, c.districts = provinces, districts
	c.expires = c.clock.Now().Add(c.ttl)
	c.loaded = true
	return nil
}
