package storage

import (
	"github.com/maypok86/otter/v2"
	"time"
)

// Cache is a string-keyed otter cache whose entries expire after ttl without access.
type Cache[T any] struct {
	outer *otter.Cache[string, T]
	ttl   time.Duration
}

func NewCache[T any](capacity int, ttl time.Duration) *Cache[T] {
	c := &Cache[T]{ttl: ttl}

	opts := &otter.Options[string, T]{
		InitialCapacity: capacity,
	}
	if ttl > 0 {
		opts.ExpiryCalculator = otter.ExpiryAccessing[string, T](ttl)
	}
	c.outer = otter.Must(opts)

	return c
}

func (c *Cache[T]) Set(key string, val T) {
	c.outer.Set(key, val)
}

func (c *Cache[T]) Get(key string) (T, bool) {
	return c.outer.GetIfPresent(key)
}

// GetOrSet returns the cached value for key, storing newVal() first if
// absent. newVal runs at most once per missing key.
func (c *Cache[T]) GetOrSet(key string, newVal func() T) T {
	v, _ := c.outer.ComputeIfAbsent(key, func() (T, bool) {
		return newVal(), false
	})
	return v
}

func (c *Cache[T]) ClearKey(key string) {
	c.outer.Invalidate(key)
}

func (c *Cache[T]) ClearAll() {
	c.outer.InvalidateAll()
}

func (c *Cache[T]) Len() int {
	return c.outer.EstimatedSize()
}

func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}
