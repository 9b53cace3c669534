package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string, int](2, 0)
	defer c.Close()

	var evicted []string
	c.OnEvict(func(k string, _ int) { evicted = append(evicted, k) })

	c.Set("a", 1)
	c.Set("b", 2)
	_, ok := c.Get("a") // a is now most recent
	require.True(t, ok)
	c.Set("c", 3)

	require.Equal(t, []string{"b"}, evicted)
	require.False(t, c.Contains("b"))
	require.True(t, c.Contains("a"))
	require.True(t, c.Contains("c"))
	require.Equal(t, 2, c.Len())
}

func TestLRUReplaceKeepsSize(t *testing.T) {
	c := NewLRUCache[string, int](2, 0)
	defer c.Close()

	c.Set("a", 1)
	c.Set("a", 2)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, 1, c.Len())
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache[string, int](4, 20*time.Millisecond)
	defer c.Close()

	c.Set("a", 1)
	require.True(t, c.Contains("a"))

	require.Eventually(t, func() bool { return !c.Contains("a") }, time.Second, 5*time.Millisecond)
	_, ok := c.Get("a")
	require.False(t, ok)
	require.Zero(t, c.Len())
}

func TestLRUDeleteAndClear(t *testing.T) {
	c := NewLRUCache[int, string](4, 0)
	defer c.Close()

	evictions := 0
	c.OnEvict(func(int, string) { evictions++ })

	c.Set(1, "one")
	c.Set(2, "two")
	c.Delete(1)
	require.False(t, c.Contains(1))
	c.Clear()
	require.Zero(t, c.Len())
	require.Zero(t, evictions)
	c.Close()
	c.Close()
}
