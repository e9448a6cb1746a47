package completion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/marvinr/internal/marvin"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(t *testing.T) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)}
	c := NewCache(DefaultTTL, DefaultCleanupGrace, time.UTC, nil)
	c.now = clock.Now
	return c, clock
}

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

type countingFetch struct {
	calls atomic.Int32
	items []marvin.Item
	err   error
}

func (f *countingFetch) Fetch(ctx context.Context, date time.Time) ([]marvin.Item, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func items(ids ...string) []marvin.Item {
	out := make([]marvin.Item, len(ids))
	for i, id := range ids {
		out[i] = marvin.Item{"_id": id}
	}
	return out
}

func TestGet_PastDayIsCachedWithinTTL(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	first := &countingFetch{items: items("a", "b")}
	got, fetched, err := c.Get(ctx, day(8), first.Fetch)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Len(t, got, 2)

	clock.Advance(9 * time.Minute)

	second := &countingFetch{items: items("z")}
	got, fetched, err = c.Get(ctx, day(8), second.Fetch)
	require.NoError(t, err)
	assert.False(t, fetched)
	assert.Equal(t, items("a", "b"), got)
	assert.EqualValues(t, 0, second.calls.Load())
}

func TestGet_ExpiredEntryIsReplaced(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	_, _, err := c.Get(ctx, day(8), (&countingFetch{items: items("a")}).Fetch)
	require.NoError(t, err)

	clock.Advance(DefaultTTL)

	fresh := &countingFetch{items: items("a", "b", "c")}
	got, fetched, err := c.Get(ctx, day(8), fresh.Fetch)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Len(t, got, 3)
	assert.Equal(t, Stats{CachedDates: 1, TotalCachedItems: 3}, c.Stats())
}

func TestGet_TodayAlwaysFetches(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	f := &countingFetch{items: items("a")}

	for i := 0; i < 3; i++ {
		_, fetched, err := c.Get(ctx, day(10).Add(15*time.Hour), f.Fetch)
		require.NoError(t, err)
		assert.True(t, fetched)
	}

	assert.EqualValues(t, 3, f.calls.Load())
	assert.Equal(t, Stats{}, c.Stats())
}

func TestGet_ErrorIsNotCached(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("upstream down")

	_, fetched, err := c.Get(ctx, day(7), (&countingFetch{err: boom}).Fetch)
	assert.ErrorIs(t, err, boom)
	assert.True(t, fetched)
	assert.Equal(t, Stats{}, c.Stats())

	retry := &countingFetch{items: items("a")}
	got, fetched, err := c.Get(ctx, day(7), retry.Fetch)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Len(t, got, 1)
}

func TestGet_MissTriggersCleanupOfLongExpiredEntries(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	_, _, err := c.Get(ctx, day(1), (&countingFetch{items: items("a", "b")}).Fetch)
	require.NoError(t, err)

	clock.Advance(DefaultTTL + DefaultCleanupGrace + time.Minute)

	_, _, err = c.Get(ctx, day(2), (&countingFetch{items: items("c")}).Fetch)
	require.NoError(t, err)

	c.mu.Lock()
	_, stillThere := c.entries[DateKey(day(1))]
	c.mu.Unlock()
	assert.False(t, stillThere)
	assert.Equal(t, Stats{CachedDates: 1, TotalCachedItems: 1}, c.Stats())
}

func TestGet_RecentlyExpiredEntrySurvivesCleanup(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	_, _, err := c.Get(ctx, day(1), (&countingFetch{items: items("a")}).Fetch)
	require.NoError(t, err)

	clock.Advance(DefaultTTL + 30*time.Minute)
	_, _, err = c.Get(ctx, day(2), (&countingFetch{items: items("c")}).Fetch)
	require.NoError(t, err)

	c.mu.Lock()
	_, stillThere := c.entries[DateKey(day(1))]
	c.mu.Unlock()
	assert.True(t, stillThere)
	// Expired entries are not counted as live.
	assert.Equal(t, Stats{CachedDates: 1, TotalCachedItems: 1}, c.Stats())
}

func TestGet_ReturnedSliceDoesNotAliasCache(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	got, _, err := c.Get(ctx, day(3), (&countingFetch{items: items("a")}).Fetch)
	require.NoError(t, err)
	got[0] = marvin.Item{"_id": "mutated"}

	again, _, err := c.Get(ctx, day(3), (&countingFetch{}).Fetch)
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].ID())
}

func TestGet_ConcurrentMissesCoalesce(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context, date time.Time) ([]marvin.Item, error) {
		calls.Add(1)
		<-release
		return items("a"), nil
	}

	const workers = 8
	var wg sync.WaitGroup
	var fetchedCount atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, fetched, err := c.Get(ctx, day(5), fetch)
			if err != nil {
				t.Errorf("get: %v", err)
				return
			}
			if len(got) != 1 {
				t.Errorf("expected 1 item, got %d", len(got))
			}
			if fetched {
				fetchedCount.Add(1)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, calls.Load(), fetchedCount.Load())
	assert.Equal(t, Stats{CachedDates: 1, TotalCachedItems: 1}, c.Stats())
}

func TestInvalidateAndClear(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	for _, d := range []int{1, 2, 3} {
		_, _, err := c.Get(ctx, day(d), (&countingFetch{items: items("x")}).Fetch)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, c.Stats().CachedDates)

	c.Invalidate(day(2))
	assert.Equal(t, 2, c.Stats().CachedDates)

	c.Clear()
	assert.Equal(t, Stats{}, c.Stats())
}
