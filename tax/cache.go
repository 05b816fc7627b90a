/*
cache.go - Read-through TTL cache over a CoefficientStore

Coefficient tables change rarely, so lookups may be cached with a bounded
TTL. The cache is a read-through optimization over the store, not a second
source of truth: misses and expiries always go back to the store, store
errors are never cached, and a tax-year can be invalidated explicitly when
its tables are republished.

This is an injected abstraction rather than module-level state so tests
stay deterministic and nothing leaks across test cases.
*/
package tax

import (
	"context"
	"sync"
	"time"
)

// DefaultCoefficientTTL bounds how stale a cached table may get.
const DefaultCoefficientTTL = time.Hour

// CachedCoefficients wraps a CoefficientStore with a TTL cache. It
// implements CoefficientStore and is safe for concurrent use.
type CachedCoefficients struct {
	store CoefficientStore
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	Scale   Scale
	TaxYear string
}

type cacheEntry struct {
	table   []TaxCoefficient
	expires time.Time
}

// NewCachedCoefficients creates a cache over store. A non-positive ttl
// falls back to DefaultCoefficientTTL.
func NewCachedCoefficients(store CoefficientStore, ttl time.Duration) *CachedCoefficients {
	if ttl <= 0 {
		ttl = DefaultCoefficientTTL
	}
	return &CachedCoefficients{
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// Table implements CoefficientStore.
func (c *CachedCoefficients) Table(ctx context.Context, scale Scale, taxYear string) ([]TaxCoefficient, error) {
	return c.lookup(ctx, cacheKey{Scale: scale, TaxYear: taxYear}, func() ([]TaxCoefficient, error) {
		return c.store.Table(ctx, scale, taxYear)
	})
}

// SupplementaryTable implements CoefficientStore.
func (c *CachedCoefficients) SupplementaryTable(ctx context.Context, taxYear string) ([]TaxCoefficient, error) {
	return c.lookup(ctx, cacheKey{Scale: SupplementaryScale, TaxYear: taxYear}, func() ([]TaxCoefficient, error) {
		return c.store.SupplementaryTable(ctx, taxYear)
	})
}

func (c *CachedCoefficients) lookup(_ context.Context, key cacheKey, load func() ([]TaxCoefficient, error)) ([]TaxCoefficient, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.table, nil
	}

	table, err := load()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{table: table, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return table, nil
}

// InvalidateYear drops every cached table for a tax-year.
func (c *CachedCoefficients) InvalidateYear(taxYear string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.TaxYear == taxYear {
			delete(c.entries, key)
		}
	}
}
