package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	treeCacheKey = "categories:tree"
	treeCacheTTL = 10 * time.Minute
)

// ErrTreeCacheMiss is returned when no cached tree is available.
var ErrTreeCacheMiss = errors.New("category tree not cached")

// TreeCache holds the serialized category tree in Redis so that read-heavy
// browse endpoints do not rebuild it from Mongo on every request. Writers
// invalidate it after any structural mutation.
type TreeCache struct {
	rdb *redis.Client
}

func NewTreeCache(rdb *redis.Client) *TreeCache {
	return &TreeCache{rdb: rdb}
}

// Get returns the cached tree JSON, or ErrTreeCacheMiss.
func (c *TreeCache) Get(ctx context.Context) ([]byte, error) {
	if c == nil || c.rdb == nil {
		return nil, ErrTreeCacheMiss
	}
	b, err := c.rdb.Get(ctx, treeCacheKey).Bytes()
	if err == redis.Nil {
		return nil, ErrTreeCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached category tree: %w", err)
	}
	return b, nil
}

// Set stores the serialized tree with a TTL so a missed invalidation can
// never go stale forever.
func (c *TreeCache) Set(ctx context.Context, tree []byte) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, treeCacheKey, tree, treeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache category tree: %w", err)
	}
	return nil
}

// Invalidate drops the cached tree. Called after every structural mutation.
func (c *TreeCache) Invalidate(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, treeCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate category tree cache: %w", err)
	}
	return nil
}
