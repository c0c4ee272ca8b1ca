package prefetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheFillIfAbsent(t *testing.T) {
	c := NewCache[string]()

	s1 := c.Begin()
	assert.True(t, c.Fill("a", "first", s1))

	s2 := c.Begin()
	assert.False(t, c.Fill("a", "second", s2), "prefetch never replaces an entry")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestCacheStoreNewerWins(t *testing.T) {
	c := NewCache[string]()

	older := c.Begin()
	newer := c.Begin()

	assert.True(t, c.Store("a", "newer", newer))
	assert.False(t, c.Store("a", "older", older), "a slow response can't clobber a newer one")

	v, _ := c.Get("a")
	assert.Equal(t, "newer", v)

	// A later direct load replaces a prefetched value.
	assert.True(t, c.Fill("b", "prefetched", c.Begin()))
	assert.True(t, c.Store("b", "direct", c.Begin()))
	v, _ = c.Get("b")
	assert.Equal(t, "direct", v)
}

func TestCacheDeleteBlocksStaleWrites(t *testing.T) {
	c := NewCache[string]()

	inFlight := c.Begin()
	c.Delete("a")

	assert.False(t, c.Fill("a", "stale", inFlight))
	assert.False(t, c.Store("a", "stale", inFlight))
	assert.False(t, c.Has("a"))

	assert.True(t, c.Fill("a", "fresh", c.Begin()))
	assert.Equal(t, 1, c.Len())
}

func TestCacheClear(t *testing.T) {
	c := NewCache[int]()
	inFlight := c.Begin()
	c.Store("a", 1, c.Begin())
	c.Store("b", 2, c.Begin())

	c.Clear()
	assert.Zero(t, c.Len())
	assert.False(t, c.Fill("c", 3, inFlight), "results begun before Clear are dropped")
	assert.True(t, c.Fill("c", 3, c.Begin()))
}
