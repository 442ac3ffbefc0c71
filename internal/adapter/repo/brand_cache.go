package repo

import (
	"context"
	"sync"
	"time"

	"server/internal/domain"
)

// BrandCache decorates a BrandRepository with a short TTL cache. Brand
// configuration changes rarely but is read on every slot allocation and
// every brand of every job, so a small staleness window is a fair trade.
type BrandCache struct {
	inner domain.BrandRepository
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]brandEntry

	now func() time.Time
}

type brandEntry struct {
	brand     *domain.Brand
	expiresAt time.Time
}

// NewBrandCache wraps inner with a TTL cache.
func NewBrandCache(inner domain.BrandRepository, ttl time.Duration) *BrandCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BrandCache{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]brandEntry),
		now:     time.Now,
	}
}

// GetByID returns the cached brand when fresh, otherwise reads through.
// Misses (including ErrNotFound) are not cached so a newly added brand is
// visible immediately.
func (c *BrandCache) GetByID(ctx context.Context, id string) (*domain.Brand, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.brand, nil
	}

	b, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[id] = brandEntry{brand: b, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return b, nil
}

// ListActive always reads through; the list is only used at startup and by
// admin surfaces, and caching it would complicate invalidation for no gain.
func (c *BrandCache) ListActive(ctx context.Context) ([]*domain.Brand, error) {
	return c.inner.ListActive(ctx)
}

var _ domain.BrandRepository = (*BrandCache)(nil)
