package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder is a buyer's wish to acquire a quantity of a product,
// paying at most MaximumAcceptedPrice per unit. Remaining quantity only
// ever shrinks; the order is removed from its buyer once it reaches zero
// or once it outlives the configured timeout.
type PurchaseOrder struct {
	ID                   int64
	ProductID            string
	OriginalQuantity     int
	RemainingQuantity    int
	MaximumAcceptedPrice decimal.Decimal
	CreatedAt            time.Time
	Buyer                *Buyer
}

func NewPurchaseOrder(productID string, quantity int, maximumAcceptedPrice decimal.Decimal, id int64) *PurchaseOrder {
	return &PurchaseOrder{
		ID:                   id,
		ProductID:            productID,
		OriginalQuantity:     quantity,
		RemainingQuantity:    quantity,
		MaximumAcceptedPrice: maximumAcceptedPrice,
		CreatedAt:            time.Now(),
	}
}

func (po *PurchaseOrder) ReduceRemaining(quantity int) {
	po.RemainingQuantity -= quantity
}

func (po *PurchaseOrder) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(po.CreatedAt) > maxAge
}

// SalesOrder is a seller's offer of a quantity of a product at a fixed
// price per unit. The price never changes after creation.
type SalesOrder struct {
	ID                int64
	ProductID         string
	Price             decimal.Decimal
	OriginalQuantity  int
	RemainingQuantity int
	CreatedAt         time.Time
	Seller            *Seller
}

func NewSalesOrder(price decimal.Decimal, productID string, quantity int, id int64) *SalesOrder {
	return &SalesOrder{
		ID:                id,
		ProductID:         productID,
		Price:             price,
		OriginalQuantity:  quantity,
		RemainingQuantity: quantity,
		CreatedAt:         time.Now(),
	}
}

func (so *SalesOrder) ReduceRemaining(quantity int) {
	so.RemainingQuantity -= quantity
}

func (so *SalesOrder) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(so.CreatedAt) > maxAge
}
