package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const cooldownKeyPrefix = "trendsentinel:cooldown:"

// RedisCooldown is a cooldown store shared between processes through redis.
type RedisCooldown struct {
	client *redis.Client
}

// NewRedisCooldown creates a cooldown store backed by the redis server at addr.
func NewRedisCooldown(addr string) *RedisCooldown {
	return &RedisCooldown{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Ping verifies the redis connection.
func (c *RedisCooldown) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// Cooling reports whether the symbol's cooldown key exists.
func (c *RedisCooldown) Cooling(ctx context.Context, symbol string) (bool, error) {
	key := cooldownKeyPrefix + symbol
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("EXISTS %s: %w", key, err)
	}
	return n > 0, nil
}

// Mark sets the symbol's cooldown key to expire after ttl.
func (c *RedisCooldown) Mark(ctx context.Context, symbol string, ttl time.Duration) error {
	key := cooldownKeyPrefix + symbol
	if err := c.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("SET %s: %w", key, err)
	}
	return nil
}

// Close closes the redis client.
func (c *RedisCooldown) Close() error {
	return c.client.Close()
}
