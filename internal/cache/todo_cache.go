package cache

import (
	"context"
	"encoding/json"
	"time"

	dom "github.com/adamako/serverless-project/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyList = "todo:list:"

// TodoCache caches per-owner todo lists in Redis. Cached records never carry
// attachment URLs; those are signed per read.
type TodoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTodoCache returns a new TodoCache.
func NewTodoCache(rdb *redis.Client, ttl time.Duration) *TodoCache {
	return &TodoCache{rdb: rdb, ttl: ttl}
}

// GetList returns the cached list for the owner or nil if miss.
func (c *TodoCache) GetList(ctx context.Context, ownerID string) ([]dom.Todo, error) {
	b, err := c.rdb.Get(ctx, keyList+ownerID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []dom.Todo
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetList stores the owner's list in cache.
func (c *TodoCache) SetList(ctx context.Context, ownerID string, list []dom.Todo) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyList+ownerID, b, c.ttl).Err()
}

// Invalidate removes the owner's cached list (cache invalidation on write).
func (c *TodoCache) Invalidate(ctx context.Context, ownerID string) error {
	return c.rdb.Del(ctx, keyList+ownerID).Err()
}
