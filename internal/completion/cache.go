// Package completion caches per-day "done items" results so range reports do
// not refetch days that can no longer change.
package completion

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/christopherklint97/marvinr/internal/marvin"
)

const (
	DefaultTTL          = 10 * time.Minute
	DefaultCleanupGrace = time.Hour

	dateLayout = "2006-01-02"
)

// FetchFunc loads the completed items for one calendar day.
type FetchFunc func(ctx context.Context, date time.Time) ([]marvin.Item, error)

type entry struct {
	date      time.Time
	items     []marvin.Item
	expiresAt time.Time
}

// Stats is a snapshot of the live (unexpired) entries.
type Stats struct {
	CachedDates      int `json:"cached_dates"`
	TotalCachedItems int `json:"total_cached_items"`
}

// Cache maps calendar days to their completed items. Today is never stored
// because its completions keep changing.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	flights singleflight.Group

	ttl   time.Duration
	grace time.Duration
	loc   *time.Location
	now   func() time.Time

	logger *slog.Logger
}

func NewCache(ttl, cleanupGrace time.Duration, loc *time.Location, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cleanupGrace < 0 {
		cleanupGrace = DefaultCleanupGrace
	}
	if loc == nil {
		loc = time.Local
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		grace:   cleanupGrace,
		loc:     loc,
		now:     time.Now,
		logger:  logger,
	}
}

// SetClock replaces the time source. Call it before the cache is shared.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Location is the zone used to decide which calendar day "today" is.
func (c *Cache) Location() *time.Location { return c.loc }

// Now returns the cache clock's current time in the cache location.
func (c *Cache) Now() time.Time { return c.now().In(c.loc) }

// DateKey formats t as YYYY-MM-DD in its own location.
func DateKey(t time.Time) string { return t.Format(dateLayout) }

// Get returns the completed items for date. fetched reports whether fetch was
// invoked by this call, which is what callers count as a live API call.
// Fetch errors are returned unchanged and leave the cache untouched.
func (c *Cache) Get(ctx context.Context, date time.Time, fetch FetchFunc) (items []marvin.Item, fetched bool, err error) {
	now := c.now()
	key := DateKey(date.In(c.loc))

	if key == DateKey(now.In(c.loc)) {
		c.logger.Debug("completion cache bypass for today", "date", key)
		items, err := fetch(ctx, date)
		return items, true, err
	}

	if items, ok := c.lookup(key, now); ok {
		c.logger.Debug("completion cache hit", "date", key, "items", len(items))
		return items, false, nil
	}

	v, err, _ := c.flights.Do(key, func() (interface{}, error) {
		// A concurrent flight may have stored the day while we waited.
		if items, ok := c.lookup(key, c.now()); ok {
			return items, nil
		}
		fetched = true
		items, err := fetch(ctx, date)
		if err != nil {
			return nil, err
		}
		c.store(key, date, items)
		return items, nil
	})
	if err != nil {
		return nil, fetched, err
	}

	c.logger.Debug("completion cache miss", "date", key, "fetched", fetched)
	return copyItems(v.([]marvin.Item)), fetched, nil
}

func (c *Cache) lookup(key string, now time.Time) ([]marvin.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		return nil, false
	}
	return copyItems(e.items), true
}

func (c *Cache) store(key string, date time.Time, items []marvin.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry{
		date:      date,
		items:     copyItems(items),
		expiresAt: now.Add(c.ttl),
	}
	c.cleanupLocked(now)
}

// cleanupLocked drops entries that expired more than the grace period ago.
func (c *Cache) cleanupLocked(now time.Time) {
	cutoff := now.Add(-c.grace)
	for key, e := range c.entries {
		if e.expiresAt.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var s Stats
	for _, e := range c.entries {
		if !now.Before(e.expiresAt) {
			continue
		}
		s.CachedDates++
		s.TotalCachedItems += len(e.items)
	}
	return s
}

// Invalidate forgets a single day.
func (c *Cache) Invalidate(date time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, DateKey(date.In(c.loc)))
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}

func copyItems(items []marvin.Item) []marvin.Item {
	if items == nil {
		return nil
	}
	out := make([]marvin.Item, len(items))
	copy(out, items)
	return out
}
