package marvin

import (
	"sync"
	"time"
)

// CategoryCache holds the category list for a short while. Categories change
// rarely and every project lookup needs them.
type CategoryCache struct {
	mu         sync.RWMutex
	categories []Item
	fetchedAt  time.Time
	ttl        time.Duration
}

func NewCategoryCache(ttl time.Duration) *CategoryCache {
	return &CategoryCache{ttl: ttl}
}

func (c *CategoryCache) Get() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.categories == nil || time.Since(c.fetchedAt) > c.ttl {
		return nil
	}

	result := make([]Item, len(c.categories))
	copy(result, c.categories)
	return result
}

func (c *CategoryCache) Set(categories []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.categories = make([]Item, len(categories))
	copy(c.categories, categories)
	c.fetchedAt = time.Now()
}

func (c *CategoryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.categories = nil
}
