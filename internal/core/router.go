package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pkazakov/tradefloor/internal/domain"
	"github.com/pkazakov/tradefloor/internal/metrics"
	"github.com/pkazakov/tradefloor/internal/port"
)

// ErrUnroutableProduct is returned for a product id outside the
// configured universe; no engine owns it.
var ErrUnroutableProduct = errors.New("no engine owns this product")

const inboxSize = 1024

type orderKind int

const (
	kindPurchase orderKind = iota
	kindSale
)

type orderMsg struct {
	kind      orderKind
	who       string
	productID string
	quantity  int
	price     decimal.Decimal
	id        int64
}

// partition is one shard of the product universe: an engine plus its
// single-consumer inbox. The worker goroutine is the only thing that
// ever touches the engine, so order submission and sitting execution
// are strictly serialized without locks.
type partition struct {
	engine *TradingEngine
	inbox  chan orderMsg
	runC   chan struct{}
	log    *zap.Logger
}

func (p *partition) loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.inbox:
			p.apply(msg)
		case <-p.runC:
			p.engine.Run(ctx)
		}
	}
}

func (p *partition) apply(msg orderMsg) {
	switch msg.kind {
	case kindPurchase:
		p.engine.AddPurchaseOrder(msg.who, msg.productID, msg.quantity, msg.id)
	case kindSale:
		p.engine.AddSalesOrder(msg.who, msg.productID, msg.quantity, msg.price, msg.id)
	}
}

// partitionListener wraps the externally supplied listener: it counts
// fully filled sales orders and re-arms the partition's run signal on
// OnStopped, which is how each shard keeps its own trading rhythm.
type partitionListener struct {
	p    *partition
	next Listener

	salesCompleted *atomic.Int64
}

func (l *partitionListener) OnSale(sale *domain.Sale) {
	if sale.SalesOrder.RemainingQuantity == 0 {
		l.salesCompleted.Add(1)
		metrics.SalesCompleted.Inc()
	}
	if l.next != nil {
		l.next.OnSale(sale)
	}
}

func (l *partitionListener) OnPurchase(sale *domain.Sale) {
	if l.next != nil {
		l.next.OnPurchase(sale)
	}
}

func (l *partitionListener) OnTimeoutSalesOrder(so *domain.SalesOrder) {
	if l.next != nil {
		l.next.OnTimeoutSalesOrder(so)
	} else {
		l.p.log.Debug("sales order timed out", zap.Int64("salesOrderId", so.ID))
	}
}

func (l *partitionListener) OnTimeoutPurchaseOrder(po *domain.PurchaseOrder) {
	if l.next != nil {
		l.next.OnTimeoutPurchaseOrder(po)
	} else {
		l.p.log.Debug("purchase order timed out", zap.Int64("purchaseOrderId", po.ID))
	}
}

func (l *partitionListener) OnStats(stats Stats) {
	if l.next != nil {
		l.next.OnStats(stats)
	}
}

func (l *partitionListener) OnStopped() {
	if l.next != nil {
		l.next.OnStopped()
	}
	// the worker consumed the previous token before calling Run, so
	// this send cannot block
	l.p.runC <- struct{}{}
}

// RouterConfig carries the immutable startup parameters of the
// partition layer.
type RouterConfig struct {
	ProductIDs      []string
	Partitions      int
	SittingDelay    time.Duration
	OrderTimeout    time.Duration
	VolumeRetention time.Duration
}

// Router statically shards the product universe across independent
// trading engines and dispatches inbound orders to the owning shard.
// The routing table is read-only after construction; each product id
// belongs to exactly one partition, so no cross-shard coordination is
// ever needed for order-book state.
type Router struct {
	partitions []*partition
	byProduct  map[string]*partition

	ids            atomic.Int64
	salesCompleted atomic.Int64

	wg  sync.WaitGroup
	log *zap.Logger
}

// NewRouter splits cfg.ProductIDs into contiguous equal chunks (the
// last chunk absorbs any remainder) and binds each chunk to a fresh
// engine. repo and listener are shared by all engines; listener may be
// nil.
func NewRouter(cfg RouterConfig, repo port.SaleRepository, listener Listener, log *zap.Logger) *Router {
	r := &Router{
		byProduct: make(map[string]*partition, len(cfg.ProductIDs)),
		log:       log,
	}

	if len(cfg.ProductIDs) == 0 {
		log.Warn("empty product universe, nothing will be routable")
		return r
	}

	n := cfg.Partitions
	if n < 1 {
		n = 1
	}
	if n > len(cfg.ProductIDs) {
		n = len(cfg.ProductIDs)
	}
	chunk := len(cfg.ProductIDs) / n

	for i := 0; i < n; i++ {
		start := i * chunk
		end := start + chunk
		if i == n-1 {
			end = len(cfg.ProductIDs)
		}
		products := cfg.ProductIDs[start:end]

		plog := log.With(zap.Int("partition", i))
		p := &partition{
			inbox: make(chan orderMsg, inboxSize),
			runC:  make(chan struct{}, 1),
			log:   plog,
		}
		pl := &partitionListener{p: p, next: listener, salesCompleted: &r.salesCompleted}
		p.engine = NewTradingEngine(cfg.SittingDelay, cfg.OrderTimeout, cfg.VolumeRetention, repo, pl, plog)

		for _, productID := range products {
			r.byProduct[productID] = p
		}
		r.partitions = append(r.partitions, p)
		plog.Info("created engine for products",
			zap.Int("products", len(products)),
			zap.String("first", products[0]),
			zap.String("last", products[len(products)-1]))
	}

	return r
}

// Start launches one worker per partition and sends each engine its
// initial run signal. Workers stop when ctx is cancelled.
func (r *Router) Start(ctx context.Context) {
	for _, p := range r.partitions {
		r.wg.Add(1)
		go p.loop(ctx, &r.wg)
		p.runC <- struct{}{}
	}
	r.log.Info("trading started", zap.Int("partitions", len(r.partitions)))
}

// Wait blocks until all partition workers have exited.
func (r *Router) Wait() {
	r.wg.Wait()
}

// SubmitPurchaseOrder assigns a request id and enqueues a purchase
// order with the owning partition. It returns as soon as the order is
// enqueued, independent of matching latency.
func (r *Router) SubmitPurchaseOrder(who, productID string, quantity int) (int64, error) {
	p, ok := r.byProduct[productID]
	if !ok {
		return 0, ErrUnroutableProduct
	}
	id := r.ids.Add(1)
	p.inbox <- orderMsg{kind: kindPurchase, who: who, productID: productID, quantity: quantity, id: id}
	return id, nil
}

// SubmitSalesOrder assigns a request id and enqueues a sales order with
// the owning partition.
func (r *Router) SubmitSalesOrder(who, productID string, quantity int, price decimal.Decimal) (int64, error) {
	p, ok := r.byProduct[productID]
	if !ok {
		return 0, ErrUnroutableProduct
	}
	id := r.ids.Add(1)
	p.inbox <- orderMsg{kind: kindSale, who: who, productID: productID, quantity: quantity, price: price, id: id}
	return id, nil
}

// SalesCompleted reads the running counter of fully filled sales
// orders, safe for concurrent use from any partition.
func (r *Router) SalesCompleted() int64 {
	return r.salesCompleted.Load()
}
