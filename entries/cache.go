package entries

import (
	"context"
	"sync"

	"rekam/log"
)

// Cache holds the last fetched entry list in server order.
type Cache struct {
	store Store

	mu      sync.RWMutex
	entries []Entry
	loaded  bool
}

func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Refresh replaces the cached list. On failure the cache is emptied and the
// error is logged and returned as a *FetchError.
func (c *Cache) Refresh(ctx context.Context) error {
	list, err := c.store.ListEntries(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.entries = nil
		c.loaded = false
		log.FetchFailed(err)
		return &FetchError{Err: err}
	}
	c.entries = list
	c.loaded = true
	return nil
}

func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Loaded reports whether the last refresh succeeded.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}
