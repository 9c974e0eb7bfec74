package rooms

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const knownRoomsKey = "rooms:known"

// Cache is a Redis-backed membership set of room names already present in
// the registry, short-circuiting the upsert on every thread create.
type Cache struct {
	client *redis.Client
}

// NewCache creates a Redis-backed room cache.
func NewCache(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewCacheWithClient creates a cache from an existing Redis client.
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Known reports whether the room name has been seen before.
func (c *Cache) Known(ctx context.Context, name string) (bool, error) {
	known, err := c.client.SIsMember(ctx, knownRoomsKey, name).Result()
	if err != nil {
		return false, fmt.Errorf("cache lookup: %w", err)
	}
	return known, nil
}

// Add records the room name as known.
func (c *Cache) Add(ctx context.Context, name string) error {
	if err := c.client.SAdd(ctx, knownRoomsKey, name).Err(); err != nil {
		return fmt.Errorf("cache add: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
