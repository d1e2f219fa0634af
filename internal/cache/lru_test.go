package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Set("key4", "value4") // evicts key1

	_, found := c.Get("key1")
	assert.False(t, found, "key1 should have been evicted")
	for _, key := range []string{"key2", "key3", "key4"} {
		_, found := c.Get(key)
		assert.True(t, found, "%s should still exist", key)
	}
	assert.Equal(t, 3, c.Size())
}

func TestLRUCacheRecencyProtectsEntry(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3) // b is now least recently used

	_, found := c.Get("b")
	assert.False(t, found, "b should have been evicted")
	v, found := c.Get("a")
	assert.True(t, found)
	assert.Equal(t, 1, v)
}

func TestLRUCacheTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newLRUCacheWithClock[string](10, time.Minute, clock.now)

	c.Set("fresh", "x")
	clock.advance(30 * time.Second)
	c.Set("newer", "y")

	_, found := c.Get("fresh")
	require.True(t, found, "fresh should not have expired yet")

	clock.advance(45 * time.Second)
	_, found = c.Get("fresh")
	assert.False(t, found, "fresh should have expired")
	assert.Equal(t, 0, c.CleanExpired())

	clock.advance(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheStats(t *testing.T) {
	c := NewLRUCache[string](2, time.Hour)
	c.Get("missing")
	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Delete("k")

	got := c.Stats()
	assert.EqualValues(t, 2, got.Hits)
	assert.EqualValues(t, 1, got.Misses)
	assert.EqualValues(t, 0, got.Size)
}

func TestManagerCleanNowAndStop(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newLRUCacheWithClock[string](10, time.Second, clock.now)
	c.Set("a", "1")
	c.Set("b", "2")

	m := NewManager(nil)
	m.Register(c)
	m.StartCleanup(time.Hour)

	clock.advance(2 * time.Second)
	assert.Equal(t, 2, m.CleanNow())

	m.Stop()
	assert.NotPanics(t, m.Stop)
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	assert.NotPanics(t, m.Stop)
}
