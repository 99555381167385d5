package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pkazakov/tradefloor/internal/domain"
	"github.com/pkazakov/tradefloor/internal/port"
)

// MarketDataPublisher pushes every sitting's price and volume snapshot
// into the market-data cache, where the HTTP read endpoints serve it
// without touching a partition's in-flight state. Cache failures are
// logged and swallowed; market data is best-effort.
type MarketDataPublisher struct {
	NopListener
	cache   port.MarketDataCache
	timeout time.Duration
	log     *zap.Logger
}

func NewMarketDataPublisher(cache port.MarketDataCache, log *zap.Logger) *MarketDataPublisher {
	return &MarketDataPublisher{cache: cache, timeout: time.Second, log: log}
}

func (p *MarketDataPublisher) OnStats(stats Stats) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	for _, mp := range stats.MarketPrices {
		if err := p.cache.SetMarketPrice(ctx, mp); err != nil {
			p.log.Warn("failed to publish market price",
				zap.String("productId", mp.ProductID), zap.Error(err))
		}
	}
	for productID, records := range stats.VolumeRecords {
		vr := domain.AggregateVolume(productID, records)
		if err := p.cache.SetVolume(ctx, vr); err != nil {
			p.log.Warn("failed to publish volume",
				zap.String("productId", productID), zap.Error(err))
		}
	}
}
