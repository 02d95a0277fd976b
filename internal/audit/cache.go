package audit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// Cache remembers the last completed audit per place so repeated requests
// inside the cache window reuse it.
type Cache interface {
	// Get returns the cached audit ID for placeID, or "" on a miss.
	Get(ctx context.Context, placeID string) (string, error)
	Set(ctx context.Context, placeID, auditID string, ttl time.Duration) error
}

const cacheKeyPrefix = "aidiscovery:audit:"

// RedisCache is a Cache backed by redis string keys with a TTL.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps an existing client.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// NewRedisClient parses a redis:// URL and returns a connected client.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "audit: parse redis url")
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, eris.Wrap(err, "audit: ping redis")
	}
	return rdb, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, placeID string) (string, error) {
	id, err := c.rdb.Get(ctx, cacheKey(placeID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "audit: cache get %s", placeID)
	}
	return id, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, placeID, auditID string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, cacheKey(placeID), auditID, ttl).Err(); err != nil {
		return eris.Wrapf(err, "audit: cache set %s", placeID)
	}
	return nil
}

func cacheKey(placeID string) string {
	return cacheKeyPrefix + placeID
}
