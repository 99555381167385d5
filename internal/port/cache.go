package port

import (
	"context"

	"github.com/pkazakov/tradefloor/internal/domain"
)

// MarketDataCache holds the latest per-product price and aggregated
// volume snapshots, published after every sitting and served to
// readers without touching a partition's in-flight state. Lookups
// return nil (no error) when nothing is cached yet.
type MarketDataCache interface {
	SetMarketPrice(ctx context.Context, mp domain.MarketPrice) error
	GetMarketPrice(ctx context.Context, productID string) (*domain.MarketPrice, error)
	SetVolume(ctx context.Context, vr domain.VolumeRecord) error
	GetVolume(ctx context.Context, productID string) (*domain.VolumeRecord, error)
}
