package category

import (
	"sort"
	"sync"
)

// Cache maps normalized extensions to category labels.
// Entries are never evicted. It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
	seeded  map[string]struct{}
}

// NewCache creates a cache pre-populated with seed.
// Seed keys are normalized the same way Resolve normalizes its input.
func NewCache(seed map[string]string) *Cache {
	c := &Cache{
		entries: make(map[string]string, len(seed)),
		seeded:  make(map[string]struct{}, len(seed)),
	}
	for ext, cat := range seed {
		key := NormalizeExtension(ext)
		c.entries[key] = cat
		c.seeded[key] = struct{}{}
	}
	return c
}

// Get returns the category stored for ext.
func (c *Cache) Get(ext string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.entries[ext]
	return cat, ok
}

// IsSeeded reports whether ext came from the startup seed table.
func (c *Cache) IsSeeded(ext string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.seeded[ext]
	return ok
}

// Set stores cat under ext, replacing any previous value.
func (c *Cache) Set(ext, cat string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ext] = cat
}

// Len returns the number of cached extensions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the cache contents.
func (c *Cache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Extensions returns the cached extensions in sorted order.
func (c *Cache) Extensions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	exts := make([]string, 0, len(c.entries))
	for k := range c.entries {
		exts = append(exts, k)
	}
	sort.Strings(exts)
	return exts
}
