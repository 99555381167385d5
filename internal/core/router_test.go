package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pkazakov/tradefloor/internal/adapter/in_memory"
)

func products(n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, fmt.Sprintf("product-%d", i))
	}
	return ids
}

func testRouterConfig(n, partitions int) RouterConfig {
	return RouterConfig{
		ProductIDs:      products(n),
		Partitions:      partitions,
		SittingDelay:    time.Millisecond,
		OrderTimeout:    time.Minute,
		VolumeRetention: 10 * time.Second,
	}
}

func TestNewRouterChunksContiguously(t *testing.T) {
	r := NewRouter(testRouterConfig(10, 3), nil, nil, zap.NewNop())

	require.Len(t, r.partitions, 3)

	// contiguous chunks of 3, the last absorbs the remainder
	assert.Same(t, r.byProduct["product-1"], r.byProduct["product-3"])
	assert.Same(t, r.byProduct["product-4"], r.byProduct["product-6"])
	assert.Same(t, r.byProduct["product-7"], r.byProduct["product-10"])
	assert.NotSame(t, r.byProduct["product-3"], r.byProduct["product-4"])
	assert.NotSame(t, r.byProduct["product-6"], r.byProduct["product-7"])

	counts := make(map[*partition]int)
	for _, p := range r.byProduct {
		counts[p]++
	}
	assert.Equal(t, 3, counts[r.partitions[0]])
	assert.Equal(t, 3, counts[r.partitions[1]])
	assert.Equal(t, 4, counts[r.partitions[2]])
}

func TestNewRouterClampsPartitionCount(t *testing.T) {
	r := NewRouter(testRouterConfig(2, 8), nil, nil, zap.NewNop())
	assert.Len(t, r.partitions, 2)

	r = NewRouter(testRouterConfig(5, 0), nil, nil, zap.NewNop())
	assert.Len(t, r.partitions, 1)
}

func TestSubmitUnroutableProduct(t *testing.T) {
	r := NewRouter(testRouterConfig(4, 2), nil, nil, zap.NewNop())

	_, err := r.SubmitPurchaseOrder("anna", "no-such-product", 1)
	assert.ErrorIs(t, err, ErrUnroutableProduct)

	_, err = r.SubmitSalesOrder("bert", "no-such-product", 1, price(5.0))
	assert.ErrorIs(t, err, ErrUnroutableProduct)
}

func TestSubmitAssignsMonotonicIDs(t *testing.T) {
	r := NewRouter(testRouterConfig(4, 2), nil, nil, zap.NewNop())

	id1, err := r.SubmitSalesOrder("bert", "product-1", 1, price(5.0))
	require.NoError(t, err)
	id2, err := r.SubmitPurchaseOrder("anna", "product-4", 1)
	require.NoError(t, err)
	id3, err := r.SubmitPurchaseOrder("anna", "product-1", 1)
	require.NoError(t, err)

	assert.Equal(t, id1+1, id2, "ids are process-wide, not per-partition")
	assert.Equal(t, id2+1, id3)
}

func TestRouterMatchesAcrossSittings(t *testing.T) {
	repo := in_memory.NewSaleRepo()
	r := NewRouter(testRouterConfig(4, 2), repo, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	_, err := r.SubmitSalesOrder("bert", "product-1", 10, price(5.0))
	require.NoError(t, err)
	_, err = r.SubmitPurchaseOrder("anna", "product-1", 10)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return r.SalesCompleted() == 1
	}, 5*time.Second, 5*time.Millisecond, "sales order should fill within a few sittings")

	sales := repo.Sales()
	require.Len(t, sales, 1)
	assert.Equal(t, "product-1", sales[0].ProductID)
	assert.Equal(t, 10, sales[0].Quantity)

	cancel()
	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("workers did not stop on context cancellation")
	}
}

func TestPartitionsTradeIndependently(t *testing.T) {
	repo := in_memory.NewSaleRepo()
	r := NewRouter(testRouterConfig(4, 2), repo, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	// product-1 and product-3 live on different partitions
	_, err := r.SubmitSalesOrder("bert", "product-1", 3, price(5.0))
	require.NoError(t, err)
	_, err = r.SubmitSalesOrder("carol", "product-3", 7, price(2.0))
	require.NoError(t, err)
	_, err = r.SubmitPurchaseOrder("anna", "product-1", 3)
	require.NoError(t, err)
	_, err = r.SubmitPurchaseOrder("dave", "product-3", 7)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return r.SalesCompleted() == 2
	}, 5*time.Second, 5*time.Millisecond)

	byProduct := make(map[string]int)
	for _, s := range repo.Sales() {
		byProduct[s.ProductID] += s.Quantity
	}
	assert.Equal(t, 3, byProduct["product-1"])
	assert.Equal(t, 7, byProduct["product-3"])
}
