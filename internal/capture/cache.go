package capture

import "sync"

// memoryCache is a bounded insertion-ordered cache. Reads never refresh an
// entry; once the bound is exceeded the oldest insertion is evicted.
type memoryCache struct {
	mu      sync.Mutex
	max     int
	order   []string
	entries map[string]Preview
}

func newMemoryCache(limit int) *memoryCache {
	if limit <= 0 {
		limit = defaultMaxEntries
	}
	return &memoryCache{max: limit, entries: make(map[string]Preview)}
}

func (c *memoryCache) get(key string) (Preview, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[key]
	return p, ok
}

// put stores p. Replacing an existing key keeps its original position.
func (c *memoryCache) put(key string, p Preview) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.entries[key] = p
		return
	}
	c.entries[key] = p
	c.order = append(c.order, key)
	for len(c.order) > c.max {
		oldest := c.order[0]
		c.order[0] = ""
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *memoryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *memoryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	clear(c.entries)
}
