package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"caseline/pkg/platform/sentinel"

	"caseline/internal/platform/redis"
	"caseline/internal/timeline/models"
)

// RedisCache memoizes person results in Redis with a TTL. Misses and
// infrastructure failures both surface as sentinel.ErrCacheMiss to callers:
// the cache is an optimization, never a correctness dependency.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, digest string) (*models.PersonResult, error) {
	raw, err := c.client.Get(ctx, key(digest)).Bytes()
	if err != nil {
		// goredis.Nil is an ordinary miss; an infrastructure hiccup is
		// treated the same way, since the pipeline recomputes on miss.
		if !errors.Is(err, goredis.Nil) {
			return nil, errors.Join(sentinel.ErrCacheMiss, err)
		}
		return nil, sentinel.ErrCacheMiss
	}
	var result models.PersonResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, sentinel.ErrCacheMiss
	}
	return &result, nil
}

func (c *RedisCache) Put(ctx context.Context, digest string, result *models.PersonResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(digest), raw, c.ttl).Err()
}

func key(digest string) string {
	return "caseline:result:" + digest
}
