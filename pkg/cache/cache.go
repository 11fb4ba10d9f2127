package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs. Aggregations are cheap to recompute, so TTLs stay short
// and every write invalidates them anyway.
const (
	TTLStats      = 5 * time.Minute
	TTLCategories = 10 * time.Minute
	TTLTags       = 10 * time.Minute
)

// Cache keys.
const (
	KeyStats      = "stats"
	KeyCategories = "categories"
	KeyTags       = "tags"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Service is the read-side cache for aggregate queries. Implementations
// must be safe for concurrent use. A nil Service is valid and means
// "no caching".
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	InvalidateAggregates(ctx context.Context) error
	IsAvailable() bool
	Ping(ctx context.Context) error
}

type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a redis-backed cache Service.
func NewRedisCache(client *redis.Client) Service {
	return &redisCache{client: client, prefix: "promptstash:"}
}

func (c *redisCache) key(k string) string {
	return c.prefix + k
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	return json.Unmarshal(data, dest)
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// InvalidateAggregates drops every cached aggregation. Called on all
// prompt writes; usage increments count as writes here since they feed
// the stats.
func (c *redisCache) InvalidateAggregates(ctx context.Context) error {
	return c.Delete(ctx, KeyStats, KeyCategories, KeyTags)
}

func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
