package in_memory

import (
	"context"
	"sync"

	"github.com/pkazakov/tradefloor/internal/domain"
	"github.com/pkazakov/tradefloor/internal/port"
)

var _ port.MarketDataCache = (*Cache)(nil)

// Cache is an in-memory market-data cache for tests and cache-less
// runs.
type Cache struct {
	mu      sync.RWMutex
	prices  map[string]domain.MarketPrice
	volumes map[string]domain.VolumeRecord
}

func NewCache() *Cache {
	return &Cache{
		prices:  make(map[string]domain.MarketPrice),
		volumes: make(map[string]domain.VolumeRecord),
	}
}

func (c *Cache) SetMarketPrice(_ context.Context, mp domain.MarketPrice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[mp.ProductID] = mp
	return nil
}

func (c *Cache) GetMarketPrice(_ context.Context, productID string) (*domain.MarketPrice, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mp, ok := c.prices[productID]
	if !ok {
		return nil, nil
	}
	return &mp, nil
}

func (c *Cache) SetVolume(_ context.Context, vr domain.VolumeRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volumes[vr.ProductID] = vr
	return nil
}

func (c *Cache) GetVolume(_ context.Context, productID string) (*domain.VolumeRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vr, ok := c.volumes[productID]
	if !ok {
		return nil, nil
	}
	return &vr, nil
}
