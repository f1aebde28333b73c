package genius

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// lruCache is a mutex-guarded, size-bounded memo keyed by string.
type lruCache[V any] struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{cache: lru.New(maxEntries)}
}

func (c *lruCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

func (c *lruCache[V]) Add(key string, value V) {
	c.mu.Lock()
	c.cache.Add(key, value)
	c.mu.Unlock()
}

func (c *lruCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

func (c *lruCache[V]) Clear() {
	c.mu.Lock()
	c.cache.Clear()
	c.mu.Unlock()
}
