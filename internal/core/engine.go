package core

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pkazakov/tradefloor/internal/domain"
	"github.com/pkazakov/tradefloor/internal/metrics"
	"github.com/pkazakov/tradefloor/internal/port"
)

// DefaultMaximumAcceptedPrice is the implicit budget of a purchase
// order submitted without a price, effectively a market order.
var DefaultMaximumAcceptedPrice = decimal.NewFromFloat(9999.9)

// TradingEngine owns one market and drives its sitting lifecycle:
// expire stale orders, match, note prices and volumes, persist the
// sales, notify the involved parties, then pace before signalling the
// end of the cycle. Between sittings buyers and sellers may enter and
// exit. All methods must be called from a single goroutine; the
// partition worker is that goroutine.
type TradingEngine struct {
	market        *Market
	marketPrices  map[string]domain.MarketPrice
	volumeRecords map[string][]domain.VolumeRecord

	delay     time.Duration
	timeout   time.Duration
	retention time.Duration

	repo     port.SaleRepository
	listener Listener
	log      *zap.Logger
}

// NewTradingEngine creates an engine over a fresh market. delay paces
// sitting frequency, timeout expires incomplete orders, retention
// bounds the volume history window. repo and listener may be nil.
func NewTradingEngine(delay, timeout, retention time.Duration, repo port.SaleRepository, listener Listener, log *zap.Logger) *TradingEngine {
	log.Debug("market is opening for trading")
	return &TradingEngine{
		market:        NewMarket(log),
		marketPrices:  make(map[string]domain.MarketPrice),
		volumeRecords: make(map[string][]domain.VolumeRecord),
		delay:         delay,
		timeout:       timeout,
		retention:     retention,
		repo:          repo,
		listener:      listener,
		log:           log,
	}
}

func (e *TradingEngine) Market() *Market { return e.market }

// Run executes one full sitting cycle and always finishes by emitting
// OnStopped, the signal for the hosting loop to schedule the next run.
func (e *TradingEngine) Run(ctx context.Context) {
	start := time.Now()
	e.log.Debug("trading sitting starting")

	e.prepareMarket()

	sales := e.market.Trade()
	e.log.Debug("trading completed", zap.Int("sales", len(sales)))

	e.noteMarketPricesAndVolumes(sales)

	persisted := true
	if err := e.persistSales(ctx, sales); err != nil {
		// at-most-once: no retry, no rollback of the in-memory
		// quantity decrements
		persisted = false
		e.log.Error("failed to persist sales", zap.Int("sales", len(sales)), zap.Error(err))
	}

	if persisted {
		for _, sale := range sales {
			if e.listener != nil {
				e.listener.OnPurchase(sale)
				e.listener.OnSale(sale)
			} else {
				e.log.Debug("sale completed",
					zap.String("productId", sale.ProductID),
					zap.String("buyer", sale.Buyer.Name),
					zap.String("seller", sale.Seller.Name))
			}
		}
		if len(sales) > 0 {
			e.log.Info("sitting completed and persisted",
				zap.Int("sales", len(sales)),
				zap.Duration("took", time.Since(start)))
		} else {
			e.log.Info("no trades")
		}
	}

	e.pruneVolumeRecords(time.Now())
	if e.listener != nil {
		e.listener.OnStats(e.statsSnapshot())
	}

	metrics.SittingDuration.Observe(time.Since(start).Seconds())

	e.pace(ctx)

	if e.listener != nil {
		e.listener.OnStopped()
	}
}

// AddPurchaseOrder registers (or reuses) the named buyer and appends a
// purchase order with the default accepted price.
func (e *TradingEngine) AddPurchaseOrder(who, productID string, quantity int, id int64) *domain.PurchaseOrder {
	buyer := e.market.AddBuyer(who)
	po := domain.NewPurchaseOrder(productID, quantity, DefaultMaximumAcceptedPrice, id)
	buyer.AddPurchaseOrder(po)
	return po
}

// AddSalesOrder registers (or reuses) the named seller and appends a
// sales order at the given price.
func (e *TradingEngine) AddSalesOrder(who, productID string, quantity int, price decimal.Decimal, id int64) *domain.SalesOrder {
	seller := e.market.AddSeller(who)
	so := domain.NewSalesOrder(price, productID, quantity, id)
	seller.AddSalesOrder(so)
	return so
}

// CurrentVolume prunes the product's stale samples and returns their
// aggregate over the retention window.
func (e *TradingEngine) CurrentVolume(productID string) domain.VolumeRecord {
	now := time.Now()
	var fresh []domain.VolumeRecord
	for _, vr := range e.volumeRecords[productID] {
		if now.Sub(vr.Timestamp) < e.retention {
			fresh = append(fresh, vr)
		}
	}
	e.volumeRecords[productID] = fresh
	return domain.AggregateVolume(productID, fresh)
}

// CurrentMarketPrice returns the last known price for the product.
func (e *TradingEngine) CurrentMarketPrice(productID string) (domain.MarketPrice, bool) {
	mp, ok := e.marketPrices[productID]
	return mp, ok
}

// prepareMarket removes timed-out orders and informs their owners of
// the (partial) failure.
func (e *TradingEngine) prepareMarket() {
	now := time.Now()

	for _, seller := range e.market.Sellers() {
		for _, so := range seller.RemoveOutdatedSalesOrders(now, e.timeout) {
			if e.listener != nil {
				e.listener.OnTimeoutSalesOrder(so)
			} else {
				e.log.Debug("incomplete sales order timed out",
					zap.Int64("salesOrderId", so.ID),
					zap.String("seller", seller.Name))
			}
		}
	}

	for _, buyer := range e.market.Buyers() {
		for _, po := range buyer.RemoveOutdatedPurchaseOrders(now, e.timeout) {
			if e.listener != nil {
				e.listener.OnTimeoutPurchaseOrder(po)
			} else {
				e.log.Debug("incomplete purchase order timed out",
					zap.Int64("purchaseOrderId", po.ID),
					zap.String("buyer", buyer.Name))
			}
		}
	}
}

// persistSales writes all sales concurrently and joins on completion.
// The aggregate outcome is success only if every write succeeded;
// otherwise the first failure is returned as representative.
func (e *TradingEngine) persistSales(ctx context.Context, sales []*domain.Sale) error {
	if len(sales) == 0 || e.repo == nil {
		return nil
	}
	e.log.Debug("preparing to persist sales", zap.Int("sales", len(sales)))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, sale := range sales {
		wg.Add(1)
		go func(s *domain.Sale) {
			defer wg.Done()
			if err := e.repo.SaveSale(ctx, s); err != nil {
				e.log.Error("failed to persist sale",
					zap.String("saleId", s.ID),
					zap.Error(err))
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(sale)
	}
	wg.Wait()
	return firstErr
}

func (e *TradingEngine) noteMarketPricesAndVolumes(sales []*domain.Sale) {
	for _, sale := range sales {
		e.updateMarketPrice(sale)
		e.updateMarketVolume(sale)
	}
}

// updateMarketPrice sets the price if none is known, or replaces it if
// the stored one is older than the sale.
func (e *TradingEngine) updateMarketPrice(sale *domain.Sale) {
	mp, ok := e.marketPrices[sale.ProductID]
	if !ok || mp.Timestamp.Before(sale.Timestamp) {
		e.marketPrices[sale.ProductID] = domain.MarketPrice{
			ProductID: sale.ProductID,
			Price:     sale.Price,
			Timestamp: sale.Timestamp,
		}
	}
}

func (e *TradingEngine) updateMarketVolume(sale *domain.Sale) {
	e.pruneVolumeRecords(time.Now())
	e.volumeRecords[sale.ProductID] = append(e.volumeRecords[sale.ProductID], domain.NewVolumeRecord(sale))
}

func (e *TradingEngine) pruneVolumeRecords(now time.Time) {
	for productID, records := range e.volumeRecords {
		var fresh []domain.VolumeRecord
		for _, vr := range records {
			if now.Sub(vr.Timestamp) < e.retention {
				fresh = append(fresh, vr)
			}
		}
		e.volumeRecords[productID] = fresh
	}
}

func (e *TradingEngine) statsSnapshot() Stats {
	prices := make(map[string]domain.MarketPrice, len(e.marketPrices))
	for k, v := range e.marketPrices {
		prices[k] = v
	}
	volumes := make(map[string][]domain.VolumeRecord, len(e.volumeRecords))
	for k, v := range e.volumeRecords {
		volumes[k] = append([]domain.VolumeRecord(nil), v...)
	}
	return Stats{
		MarketInfo:    e.market.MarketInfo(),
		MarketPrices:  prices,
		VolumeRecords: volumes,
	}
}

// pace blocks the sitting for the configured delay. This is a rate
// limiter on sitting frequency, local to the owning worker.
func (e *TradingEngine) pace(ctx context.Context) {
	if e.delay <= 0 {
		return
	}
	select {
	case <-time.After(e.delay):
	case <-ctx.Done():
	}
}
