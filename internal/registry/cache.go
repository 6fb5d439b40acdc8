package registry

import (
	"context"
	"sync"
	"time"

	"github.com/shekelsync/shekelsync/internal/service"
)

// DefaultCacheTTL is how long a fetched vendor list stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// Cached wraps a VendorRegistry and serves the vendor list from memory until
// the TTL expires. Errors are never cached.
type Cached struct {
	source    service.VendorRegistry
	mu        sync.Mutex
	vendors   []string
	fetchedAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewCached wraps source with a TTL cache. A non-positive ttl uses
// DefaultCacheTTL.
func NewCached(source service.VendorRegistry, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// BankVendors returns the cached vendor list, refreshing from the source when
// stale. Concurrent callers share one fetch at a time.
func (c *Cached) BankVendors(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vendors != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return copyList(c.vendors), nil
	}

	fetched, err := c.source.BankVendors(ctx)
	if err != nil {
		return nil, err
	}
	c.vendors = fetched
	c.fetchedAt = c.now()
	return copyList(fetched), nil
}

func copyList(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
