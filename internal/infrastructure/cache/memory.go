package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bkharvest/harvester/internal/domain"
)

var _ domain.ItemCache = (*MemoryCache[domain.ItemInfo])(nil)

// DefaultSize is the entry limit used when NewMemoryCache gets size <= 0.
const DefaultSize = 10_000

// MemoryCache is a size-bounded in-memory cache whose entries expire ttl
// after they were set.
type MemoryCache[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewMemoryCache creates a cache holding at most size entries for ttl each.
func NewMemoryCache[V any](size int, ttl time.Duration) *MemoryCache[V] {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryCache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Get retrieves a value from the cache
func (c *MemoryCache[V]) Get(ctx context.Context, key string) (V, error) {
	value, hit := c.lru.Get(key)
	if !hit {
		var zero V
		return zero, domain.ErrCacheMiss
	}
	return value, nil
}

// Set stores a copy of value. The copy is made through JSON so later changes
// to pointers inside value do not leak into the cache.
func (c *MemoryCache[V]) Set(ctx context.Context, key string, value V) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var stored V
	if err := json.Unmarshal(jsonData, &stored); err != nil {
		return err
	}

	c.lru.Add(key, stored)
	return nil
}
