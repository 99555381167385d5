package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pkazakov/tradefloor/internal/adapter/in_memory"
	"github.com/pkazakov/tradefloor/internal/domain"
)

// recorder captures every event the engine emits.
type recorder struct {
	mu         sync.Mutex
	sales      []*domain.Sale
	purchases  []*domain.Sale
	timeoutSOs []*domain.SalesOrder
	timeoutPOs []*domain.PurchaseOrder
	stats      []Stats
	stopped    int
}

func (r *recorder) OnSale(s *domain.Sale) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, s)
}

func (r *recorder) OnPurchase(s *domain.Sale) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purchases = append(r.purchases, s)
}

func (r *recorder) OnTimeoutSalesOrder(so *domain.SalesOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeoutSOs = append(r.timeoutSOs, so)
}

func (r *recorder) OnTimeoutPurchaseOrder(po *domain.PurchaseOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeoutPOs = append(r.timeoutPOs, po)
}

func (r *recorder) OnStats(s Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, s)
}

func (r *recorder) OnStopped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
}

// failNthRepo fails exactly one SaveSale call out of a batch.
type failNthRepo struct {
	mu    sync.Mutex
	calls int
	n     int
	saved []*domain.Sale
}

func (r *failNthRepo) SaveSale(_ context.Context, s *domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls == r.n {
		return errors.New("connection reset")
	}
	r.saved = append(r.saved, s)
	return nil
}

func newTestEngine(repo interface {
	SaveSale(context.Context, *domain.Sale) error
}, rec *recorder, timeout time.Duration) *TradingEngine {
	return NewTradingEngine(0, timeout, 10*time.Second, repo, rec, zap.NewNop())
}

func TestRunMatchesPersistsAndNotifies(t *testing.T) {
	rec := &recorder{}
	repo := in_memory.NewSaleRepo()
	e := newTestEngine(repo, rec, time.Minute)

	e.AddSalesOrder("S", "widget", 10, price(5.0), 1)
	e.AddPurchaseOrder("B", "widget", 4, 2)

	e.Run(context.Background())

	require.Len(t, repo.Sales(), 1)
	require.Len(t, rec.sales, 1)
	require.Len(t, rec.purchases, 1)
	assert.Equal(t, 4, rec.sales[0].Quantity)
	require.Len(t, rec.stats, 1)
	assert.Equal(t, 1, rec.stopped)

	mp, ok := e.CurrentMarketPrice("widget")
	require.True(t, ok)
	assert.True(t, mp.Price.Equal(price(5.0)))

	vol := e.CurrentVolume("widget")
	assert.Equal(t, 4, vol.Quantity)
	assert.Equal(t, 1, vol.Count)
	assert.True(t, vol.Turnover.Equal(price(20.0)))
}

func TestRunExpiresOutdatedOrders(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(in_memory.NewSaleRepo(), rec, time.Minute)

	po := e.AddPurchaseOrder("B", "widget", 4, 1)
	po.CreatedAt = time.Now().Add(-time.Hour)
	so := e.AddSalesOrder("S", "gadget", 10, price(5.0), 2)
	so.CreatedAt = time.Now().Add(-time.Hour)
	e.AddPurchaseOrder("B", "widget", 2, 3) // fresh, stays

	e.Run(context.Background())

	require.Len(t, rec.timeoutPOs, 1)
	assert.Same(t, po, rec.timeoutPOs[0])
	require.Len(t, rec.timeoutSOs, 1)
	assert.Same(t, so, rec.timeoutSOs[0])
	require.Len(t, e.Market().Buyers(), 1)
	assert.Len(t, e.Market().Buyers()[0].PurchaseOrders(), 1)

	// a second sitting must not re-report the expired orders
	e.Run(context.Background())
	assert.Len(t, rec.timeoutPOs, 1)
	assert.Len(t, rec.timeoutSOs, 1)
}

func TestRunPersistFailureSuppressesNotifications(t *testing.T) {
	rec := &recorder{}
	repo := &failNthRepo{n: 1}
	e := newTestEngine(repo, rec, time.Minute)

	e.AddSalesOrder("S", "widget", 7, price(5.0), 1)
	e.AddPurchaseOrder("B1", "widget", 5, 2)
	e.AddPurchaseOrder("B2", "widget", 5, 3)

	e.Run(context.Background())

	assert.Empty(t, rec.sales, "no sale events after a failed batch")
	assert.Empty(t, rec.purchases)
	require.Len(t, rec.stats, 1, "stats still fire")
	assert.Equal(t, 1, rec.stopped, "cycle still completes")

	// quantity decrements are not rolled back
	assert.Empty(t, e.Market().Sellers()[0].SalesOrders())

	// and the next sitting proceeds normally
	e.AddSalesOrder("S", "widget", 3, price(5.0), 4)
	e.Run(context.Background())
	require.Len(t, rec.sales, 1)
	assert.Equal(t, 2, rec.stopped)
}

func TestRunEmptySittingStillEmitsStatsAndStopped(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(in_memory.NewSaleRepo(), rec, time.Minute)

	e.Run(context.Background())

	assert.Empty(t, rec.sales)
	require.Len(t, rec.stats, 1)
	assert.Equal(t, 1, rec.stopped)
}

func TestMarketPriceReplacedOnlyByNewerSale(t *testing.T) {
	e := newTestEngine(in_memory.NewSaleRepo(), &recorder{}, time.Minute)

	e.AddSalesOrder("S", "widget", 4, price(5.0), 1)
	e.AddPurchaseOrder("B", "widget", 4, 2)
	e.Run(context.Background())

	e.AddSalesOrder("S2", "widget", 4, price(4.0), 3)
	e.AddPurchaseOrder("B", "widget", 4, 4)
	e.Run(context.Background())

	mp, ok := e.CurrentMarketPrice("widget")
	require.True(t, ok)
	assert.True(t, mp.Price.Equal(price(4.0)), "newer sale replaces the price")
}

func TestCurrentVolumePrunesStaleSamples(t *testing.T) {
	rec := &recorder{}
	e := NewTradingEngine(0, time.Minute, time.Millisecond, in_memory.NewSaleRepo(), rec, zap.NewNop())

	e.AddSalesOrder("S", "widget", 4, price(5.0), 1)
	e.AddPurchaseOrder("B", "widget", 4, 2)
	e.Run(context.Background())

	time.Sleep(5 * time.Millisecond)

	vol := e.CurrentVolume("widget")
	assert.Equal(t, 0, vol.Quantity)
	assert.Equal(t, 0, vol.Count)
}

func TestStatsSnapshotCarriesMarketInfo(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(in_memory.NewSaleRepo(), rec, time.Minute)

	e.AddSalesOrder("S", "widget", 10, price(5.0), 1)
	e.AddSalesOrder("S", "gadget", 2, price(1.0), 2)
	e.AddPurchaseOrder("B", "widget", 4, 3)

	e.Run(context.Background())

	require.Len(t, rec.stats, 1)
	stats := rec.stats[0]
	assert.Equal(t, 1, stats.MarketInfo.SalesOrders["widget"])
	assert.Equal(t, 1, stats.MarketInfo.SalesOrders["gadget"])
	assert.Equal(t, 1, stats.MarketInfo.PurchaseOrders["widget"])
	assert.Contains(t, stats.MarketPrices, "widget")
	assert.Contains(t, stats.VolumeRecords, "widget")
}

func TestPaceHonoursContextCancellation(t *testing.T) {
	rec := &recorder{}
	e := NewTradingEngine(time.Hour, time.Minute, 10*time.Second, in_memory.NewSaleRepo(), rec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return on cancelled context despite pacing delay")
	}
	assert.Equal(t, 1, rec.stopped)
}
