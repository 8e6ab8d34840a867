package algorithm

import (
	"sync"
)

type cacheKey struct {
	source, target, limit int
}

// pathCache memoizes route counts for a single run.
type pathCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]int
}

func newPathCache() *pathCache {
	return &pathCache{entries: make(map[cacheKey]int)}
}

func (c *pathCache) get(k cacheKey) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[k]
	return v, ok
}

func (c *pathCache) put(k cacheKey, v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = v
}
