package cache

import (
	"context"
	"testing"
	"time"

	"moneytrace/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("j", "w")
	now = now.Add(2 * time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("1:1", 1)
	c.Set("1:2", 2)
	c.Set("12:1", 3)

	assert.Equal(t, 2, c.DeletePrefix("1:"))
	_, ok := c.Get("12:1")
	assert.True(t, ok)
}

func TestCategoryTypesResolve(t *testing.T) {
	c := NewCategoryTypes(10, time.Minute)
	calls := 0
	load := func(_ context.Context, userID int64, ids []int64) (map[int64]core.CategoryType, error) {
		calls++
		out := map[int64]core.CategoryType{}
		for _, id := range ids {
			if id == 1 {
				out[id] = core.Expense
			}
		}
		return out, nil
	}

	got, err := c.Resolve(context.Background(), 7, []int64{1, 1, 2}, load)
	require.NoError(t, err)
	assert.Equal(t, map[int64]core.CategoryType{1: core.Expense}, got)
	assert.Equal(t, 1, calls)

	_, err = c.Resolve(context.Background(), 7, []int64{1}, load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "hit served from cache")

	c.Invalidate(7)
	_, err = c.Resolve(context.Background(), 7, []int64{1}, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestManagerStops(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewCategoryTypes(1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
}
