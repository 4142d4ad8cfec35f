package cache

import (
	"context"
	"fmt"
	"time"

	"moneytrace/internal/core"
)

// CategoryTypeLoader fetches category types for ids missing from the cache.
type CategoryTypeLoader func(ctx context.Context, userID int64, ids []int64) (map[int64]core.CategoryType, error)

// CategoryTypes caches the type of each category per user. Unknown ids are
// never cached so that a category created later is found.
type CategoryTypes struct {
	lru *LRUCache[core.CategoryType]
}

func NewCategoryTypes(size int, ttl time.Duration) *CategoryTypes {
	return &CategoryTypes{lru: NewLRUCache[core.CategoryType](size, ttl)}
}

func categoryKey(userID, categoryID int64) string {
	return fmt.Sprintf("%d:%d", userID, categoryID)
}

// Resolve returns the types of ids, loading misses in one call.
func (c *CategoryTypes) Resolve(ctx context.Context, userID int64, ids []int64, load CategoryTypeLoader) (map[int64]core.CategoryType, error) {
	out := make(map[int64]core.CategoryType, len(ids))
	var missing []int64
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		if t, ok := c.lru.Get(categoryKey(userID, id)); ok {
			out[id] = t
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := load(ctx, userID, missing)
	if err != nil {
		return nil, err
	}
	for id, t := range loaded {
		c.lru.Set(categoryKey(userID, id), t)
		out[id] = t
	}
	return out, nil
}

// Invalidate drops every cached category of the user.
func (c *CategoryTypes) Invalidate(userID int64) {
	c.lru.DeletePrefix(fmt.Sprintf("%d:", userID))
}

func (c *CategoryTypes) CleanExpired() int {
	return c.lru.CleanExpired()
}
