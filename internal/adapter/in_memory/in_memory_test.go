package in_memory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkazakov/tradefloor/internal/domain"
)

func TestSaleRepoConcurrentSaves(t *testing.T) {
	repo := NewSaleRepo()

	buyer := domain.NewBuyer("anna")
	seller := domain.NewSeller("bert")
	po := domain.NewPurchaseOrder("widget", 100, decimal.NewFromInt(10), 1)
	buyer.AddPurchaseOrder(po)
	so := domain.NewSalesOrder(decimal.NewFromInt(5), "widget", 100, 2)
	seller.AddSalesOrder(so)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, repo.SaveSale(context.Background(), domain.NewSale(po, so, 1)))
		}()
	}
	wg.Wait()

	assert.Len(t, repo.Sales(), 20)
}

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache()
	ctx := context.Background()

	mp, err := c.GetMarketPrice(ctx, "widget")
	require.NoError(t, err)
	assert.Nil(t, mp, "empty cache yields nil, not an error")

	stored := domain.MarketPrice{ProductID: "widget", Price: decimal.NewFromFloat(5.0)}
	require.NoError(t, c.SetMarketPrice(ctx, stored))
	mp, err = c.GetMarketPrice(ctx, "widget")
	require.NoError(t, err)
	require.NotNil(t, mp)
	assert.True(t, mp.Price.Equal(stored.Price))

	vr, err := c.GetVolume(ctx, "widget")
	require.NoError(t, err)
	assert.Nil(t, vr)

	require.NoError(t, c.SetVolume(ctx, domain.VolumeRecord{ProductID: "widget", Quantity: 7, Turnover: decimal.NewFromInt(35), Count: 3}))
	vr, err = c.GetVolume(ctx, "widget")
	require.NoError(t, err)
	require.NotNil(t, vr)
	assert.Equal(t, 7, vr.Quantity)
}
