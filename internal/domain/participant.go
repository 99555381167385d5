package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoSalesOrder is returned when a seller has no sales order for the
// requested product. Callers are expected to check HasProduct first.
var ErrNoSalesOrder = errors.New("seller has no sales order for product")

// Buyer is identified by name. It owns its purchase orders in insertion
// order; that order determines match priority within a sitting.
type Buyer struct {
	Name           string
	purchaseOrders []*PurchaseOrder
}

func NewBuyer(name string) *Buyer {
	return &Buyer{Name: name}
}

func (b *Buyer) AddPurchaseOrder(po *PurchaseOrder) {
	po.Buyer = b
	b.purchaseOrders = append(b.purchaseOrders, po)
}

func (b *Buyer) PurchaseOrders() []*PurchaseOrder {
	return b.purchaseOrders
}

// RelevantPurchaseOrders returns the buyer's purchase orders for the
// product whose maximum accepted price covers the given price,
// preserving insertion order.
func (b *Buyer) RelevantPurchaseOrders(productID string, price decimal.Decimal) []*PurchaseOrder {
	var relevant []*PurchaseOrder
	for _, po := range b.purchaseOrders {
		if po.ProductID == productID && po.MaximumAcceptedPrice.GreaterThanOrEqual(price) {
			relevant = append(relevant, po)
		}
	}
	return relevant
}

func (b *Buyer) RemovePurchaseOrder(po *PurchaseOrder) {
	for i, other := range b.purchaseOrders {
		if other == po {
			b.purchaseOrders = append(b.purchaseOrders[:i], b.purchaseOrders[i+1:]...)
			return
		}
	}
}

// RemoveOutdatedPurchaseOrders drops orders older than maxAge from the
// buyer and returns them so the caller can notify their owner.
func (b *Buyer) RemoveOutdatedPurchaseOrders(now time.Time, maxAge time.Duration) []*PurchaseOrder {
	var fresh, expired []*PurchaseOrder
	for _, po := range b.purchaseOrders {
		if po.Expired(now, maxAge) {
			expired = append(expired, po)
		} else {
			fresh = append(fresh, po)
		}
	}
	b.purchaseOrders = fresh
	return expired
}

// Seller is identified by name and owns its sales orders in insertion
// order.
type Seller struct {
	Name        string
	salesOrders []*SalesOrder
}

func NewSeller(name string) *Seller {
	return &Seller{Name: name}
}

func (s *Seller) AddSalesOrder(so *SalesOrder) {
	so.Seller = s
	s.salesOrders = append(s.salesOrders, so)
}

func (s *Seller) SalesOrders() []*SalesOrder {
	return s.salesOrders
}

func (s *Seller) HasProduct(productID string) bool {
	for _, so := range s.salesOrders {
		if so.ProductID == productID {
			return true
		}
	}
	return false
}

// CheapestSalesOrder returns the seller's lowest-priced order for the
// product. Among equal prices the earliest-inserted order wins.
func (s *Seller) CheapestSalesOrder(productID string) (*SalesOrder, error) {
	var cheapest *SalesOrder
	for _, so := range s.salesOrders {
		if so.ProductID != productID {
			continue
		}
		if cheapest == nil || so.Price.LessThan(cheapest.Price) {
			cheapest = so
		}
	}
	if cheapest == nil {
		return nil, ErrNoSalesOrder
	}
	return cheapest, nil
}

func (s *Seller) RemoveSalesOrder(so *SalesOrder) {
	for i, other := range s.salesOrders {
		if other == so {
			s.salesOrders = append(s.salesOrders[:i], s.salesOrders[i+1:]...)
			return
		}
	}
}

// RemoveOutdatedSalesOrders drops orders older than maxAge from the
// seller and returns them.
func (s *Seller) RemoveOutdatedSalesOrders(now time.Time, maxAge time.Duration) []*SalesOrder {
	var fresh, expired []*SalesOrder
	for _, so := range s.salesOrders {
		if so.Expired(now, maxAge) {
			expired = append(expired, so)
		} else {
			fresh = append(fresh, so)
		}
	}
	s.salesOrders = fresh
	return expired
}
