package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores bundles by topic between runs.
type Cache interface {
	Get(ctx context.Context, topic string) (*Bundle, bool, error)
	Set(ctx context.Context, topic string, b *Bundle) error
}

const redisKeyPrefix = "researchcast:research:"

// RedisCache is a Cache backed by Redis string keys with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// CacheKey normalizes topic so trivially different spellings share an entry.
func CacheKey(topic string) string {
	return redisKeyPrefix + strings.Join(strings.Fields(strings.ToLower(topic)), " ")
}

func (c *RedisCache) Get(ctx context.Context, topic string) (*Bundle, bool, error) {
	data, err := c.client.Get(ctx, CacheKey(topic)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, false, fmt.Errorf("decode cached bundle: %w", err)
	}
	return &b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, topic string, b *Bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := c.client.Set(ctx, CacheKey(topic), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
