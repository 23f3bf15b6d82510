// Package cache keeps the last known available stock per product in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStockCache stores product stock under product:<id>:stock with a TTL
type RedisStockCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStockCache creates a stock cache on client
func NewRedisStockCache(client *redis.Client, ttl time.Duration) *RedisStockCache {
	return &RedisStockCache{client: client, ttl: ttl}
}

func productStockKey(productID uint) string {
	return fmt.Sprintf("product:%d:stock", productID)
}

// GetProductStock returns the cached stock. ok is false on a miss.
func (c *RedisStockCache) GetProductStock(ctx context.Context, productID uint) (int, bool, error) {
	raw, err := c.client.Get(ctx, productStockKey(productID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read stock cache: %w", err)
	}

	stock, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt stock cache entry %q: %w", raw, err)
	}
	return stock, true, nil
}

func (c *RedisStockCache) SetProductStock(ctx context.Context, productID uint, quantity int) error {
	if err := c.client.Set(ctx, productStockKey(productID), quantity, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write stock cache: %w", err)
	}
	return nil
}

// Invalidate drops the entries of every product in one round trip
func (c *RedisStockCache) Invalidate(ctx context.Context, productIDs ...uint) error {
	if len(productIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, productStockKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stock cache: %w", err)
	}
	return nil
}

// NopStockCache never holds anything. Used when Redis is disabled.
type NopStockCache struct{}

func (NopStockCache) GetProductStock(context.Context, uint) (int, bool, error) { return 0, false, nil }
func (NopStockCache) SetProductStock(context.Context, uint, int) error         { return nil }
func (NopStockCache) Invalidate(context.Context, ...uint) error                { return nil }
