package core

import "github.com/pkazakov/tradefloor/internal/domain"

// Stats is the per-sitting snapshot handed to OnStats: open-order
// counts plus copies of the price and volume bookkeeping.
type Stats struct {
	MarketInfo    domain.MarketInfo
	MarketPrices  map[string]domain.MarketPrice
	VolumeRecords map[string][]domain.VolumeRecord
}

// Listener receives the engine's lifecycle events. It is supplied at
// construction; a nil listener means events are only logged.
//
// OnStopped marks the end of a sitting and is the re-entry signal: the
// hosting loop reacts to it by scheduling the next Run.
type Listener interface {
	OnSale(sale *domain.Sale)
	OnPurchase(sale *domain.Sale)
	OnTimeoutSalesOrder(so *domain.SalesOrder)
	OnTimeoutPurchaseOrder(po *domain.PurchaseOrder)
	OnStats(stats Stats)
	OnStopped()
}

// NopListener implements Listener with no-ops, for embedding when only
// a subset of events is of interest.
type NopListener struct{}

func (NopListener) OnSale(*domain.Sale)                          {}
func (NopListener) OnPurchase(*domain.Sale)                      {}
func (NopListener) OnTimeoutSalesOrder(*domain.SalesOrder)       {}
func (NopListener) OnTimeoutPurchaseOrder(*domain.PurchaseOrder) {}
func (NopListener) OnStats(Stats)                                {}
func (NopListener) OnStopped()                                   {}
