package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type key struct {
	revision int
	goal     string
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[key, int](2, 0)
	c.Set(key{1, "0"}, 1)
	c.Set(key{2, "0"}, 2)
	_, _ = c.Get(key{1, "0"})
	c.Set(key{3, "0"}, 3)

	_, ok := c.Get(key{2, "0"})
	assert.False(t, ok, "least recently used key should be evicted")
	v, ok := c.Get(key{1, "0"})
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRU[string, string](10, 10*time.Millisecond)
	c.Set("a", "x")
	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("b", "y")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestGetOrComputeCallsOncePerKey(t *testing.T) {
	c := NewLRU[key, int](4, time.Minute)
	calls := 0
	compute := func() int { calls++; return 42 }

	assert.Equal(t, 42, c.GetOrCompute(key{1, "100"}, compute))
	assert.Equal(t, 42, c.GetOrCompute(key{1, "100"}, compute))
	assert.Equal(t, 1, calls)

	c.GetOrCompute(key{2, "100"}, compute)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, c.Size())
}

func TestManagerRunStopsWithContext(t *testing.T) {
	c := NewLRU[string, int](4, time.Millisecond)
	c.Set("a", 1)
	m := NewManager(c)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(ctx, 5*time.Millisecond))
	assert.Equal(t, 0, c.Size())
}
