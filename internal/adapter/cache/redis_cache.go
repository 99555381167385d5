package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkazakov/tradefloor/internal/domain"
	"github.com/pkazakov/tradefloor/internal/port"
)

var _ port.MarketDataCache = (*RedisCache)(nil)

// RedisCache keeps the latest market price and aggregated volume per
// product as JSON values with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func priceKey(productID string) string  { return "mp:" + productID }
func volumeKey(productID string) string { return "vol:" + productID }

func (c *RedisCache) SetMarketPrice(ctx context.Context, mp domain.MarketPrice) error {
	b, err := json.Marshal(mp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, priceKey(mp.ProductID), b, c.ttl).Err()
}

func (c *RedisCache) GetMarketPrice(ctx context.Context, productID string) (*domain.MarketPrice, error) {
	b, err := c.client.Get(ctx, priceKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var mp domain.MarketPrice
	if err := json.Unmarshal(b, &mp); err != nil {
		return nil, err
	}
	return &mp, nil
}

func (c *RedisCache) SetVolume(ctx context.Context, vr domain.VolumeRecord) error {
	b, err := json.Marshal(vr)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, volumeKey(vr.ProductID), b, c.ttl).Err()
}

func (c *RedisCache) GetVolume(ctx context.Context, productID string) (*domain.VolumeRecord, error) {
	b, err := c.client.Get(ctx, volumeKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var vr domain.VolumeRecord
	if err := json.Unmarshal(b, &vr); err != nil {
		return nil, err
	}
	return &vr, nil
}
