package geocoder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache remembers resolved place names by coordinate.
type Cache interface {
	// Get returns ("", false, nil) on a miss.
	Get(ctx context.Context, lat, lon float64) (string, bool, error)
	Set(ctx context.Context, lat, lon float64, place string) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("geocode:%.6f,%.6f", lat, lon)
}

func (c *RedisCache) Get(ctx context.Context, lat, lon float64) (string, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(lat, lon)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read geocode cache: %w", err)
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, lat, lon float64, place string) error {
	if err := c.client.Set(ctx, cacheKey(lat, lon), place, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write geocode cache: %w", err)
	}
	return nil
}
