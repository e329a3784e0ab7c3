package data

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dgnsrekt/intraday-dashboard/internal/market"
	"github.com/dgnsrekt/intraday-dashboard/internal/options"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache memoizes fetch results per key for a fixed TTL. Concurrent misses for
// the same key share one fetch. Errors are never cached.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	group   singleflight.Group
	now     func() time.Time
}

func NewCache[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key if it has not expired
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrFetch returns the cached value or calls fetch and stores its result.
// The bool reports a cache hit.
func (c *Cache[V]) GetOrFetch(key string, fetch func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fetch()
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		c.entries[key] = entry[V]{value: v, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return res.(V), false, nil
}

// Reset drops the entry for key, or all entries when key is empty. Returns
// the number removed.
func (c *Cache[V]) Reset(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key == "" {
		count := len(c.entries)
		c.entries = make(map[string]entry[V])
		return count
	}

	if _, ok := c.entries[key]; !ok {
		return 0
	}
	delete(c.entries, key)
	return 1
}

// Len returns the number of stored entries, expired or not
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// BarFetcher is the subset of api.BarSource the cache wraps
type BarFetcher interface {
	FetchBars(ctx context.Context, symbol string) ([]market.RawBar, error)
}

// OptionsFetcher is the subset of api.OptionsSource the cache wraps
type OptionsFetcher interface {
	FetchOptionsSnapshot(ctx context.Context, underlying string) ([]options.SnapshotEntry, error)
}

// CachedBars memoizes a bar source per symbol
type CachedBars struct {
	source BarFetcher
	cache  *Cache[[]market.RawBar]
	logger *zap.Logger
}

func NewCachedBars(source BarFetcher, ttl time.Duration, logger *zap.Logger) *CachedBars {
	return &CachedBars{source: source, cache: NewCache[[]market.RawBar](ttl), logger: logger}
}

func (c *CachedBars) FetchBars(ctx context.Context, symbol string) ([]market.RawBar, error) {
	key := strings.ToUpper(symbol)
	bars, hit, err := c.cache.GetOrFetch(key, func() ([]market.RawBar, error) {
		return c.source.FetchBars(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("bars", zap.String("symbol", key), zap.Bool("cache_hit", hit))
	return bars, nil
}

// Reset clears cached bars for symbol, or everything when symbol is empty
func (c *CachedBars) Reset(symbol string) int {
	return c.cache.Reset(strings.ToUpper(symbol))
}

// CachedOptions memoizes an options snapshot source per underlying
type CachedOptions struct {
	source OptionsFetcher
	cache  *Cache[[]options.SnapshotEntry]
	logger *zap.Logger
}

func NewCachedOptions(source OptionsFetcher, ttl time.Duration, logger *zap.Logger) *CachedOptions {
	return &CachedOptions{source: source, cache: NewCache[[]options.SnapshotEntry](ttl), logger: logger}
}

func (c *CachedOptions) FetchOptionsSnapshot(ctx context.Context, underlying string) ([]options.SnapshotEntry, error) {
	key := strings.ToUpper(underlying)
	entries, hit, err := c.cache.GetOrFetch(key, func() ([]options.SnapshotEntry, error) {
		return c.source.FetchOptionsSnapshot(ctx, underlying)
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("options snapshot", zap.String("underlying", key), zap.Bool("cache_hit", hit))
	return entries, nil
}

func (c *CachedOptions) Reset(underlying string) int {
	return c.cache.Reset(strings.ToUpper(underlying))
}
