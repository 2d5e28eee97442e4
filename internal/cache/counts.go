package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CountCachePrefix is the key prefix for cached photo comment counts
	CountCachePrefix = "comments:count:"

	// CountCacheTTL bounds how stale an untouched counter entry may live
	CountCacheTTL = 24 * time.Hour
)

// CountCache holds the denormalized comment count per photo so screens that
// only display the number never have to re-fetch the photo row. The worker
// applies signed deltas from the comment event stream.
type CountCache interface {
	// ApplyDelta adjusts the cached count. A miss is left as a miss: deltas
	// only move counts that were seeded from the store.
	ApplyDelta(ctx context.Context, photoID string, delta int64) error

	// SetCount seeds the cached count from the authoritative store value.
	SetCount(ctx context.Context, photoID string, count int64) error

	// GetCount returns the cached count. found=false means no cache entry.
	GetCount(ctx context.Context, photoID string) (count int64, found bool, err error)

	// Invalidate drops the cached count for a photo.
	Invalidate(ctx context.Context, photoID string) error
}

// RedisCountCache implements CountCache using plain Redis keys.
type RedisCountCache struct {
	client *redis.Client
}

// NewCountCache creates a CountCache backed by Redis.
func NewCountCache(client *redis.Client) CountCache {
	return &RedisCountCache{client: client}
}

func countKey(photoID string) string {
	return CountCachePrefix + photoID
}

// ApplyDelta applies a signed delta with INCRBY, refreshing the TTL.
// Only touches keys that already exist so a delta can never invent a count.
func (c *RedisCountCache) ApplyDelta(ctx context.Context, photoID string, delta int64) error {
	key := countKey(photoID)

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check count key: %w", err)
	}
	if exists == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	pipe.IncrBy(ctx, key, delta)
	pipe.Expire(ctx, key, CountCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("apply count delta: %w", err)
	}
	return nil
}

// SetCount seeds the counter with SET + TTL.
func (c *RedisCountCache) SetCount(ctx context.Context, photoID string, count int64) error {
	if err := c.client.Set(ctx, countKey(photoID), count, CountCacheTTL).Err(); err != nil {
		return fmt.Errorf("set count: %w", err)
	}
	return nil
}

// GetCount reads the cached counter.
func (c *RedisCountCache) GetCount(ctx context.Context, photoID string) (int64, bool, error) {
	count, err := c.client.Get(ctx, countKey(photoID)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get count: %w", err)
	}
	return count, true, nil
}

// Invalidate removes the cached counter.
func (c *RedisCountCache) Invalidate(ctx context.Context, photoID string) error {
	if err := c.client.Del(ctx, countKey(photoID)).Err(); err != nil {
		return fmt.Errorf("invalidate count: %w", err)
	}
	return nil
}
