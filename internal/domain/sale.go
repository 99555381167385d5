package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is an executed match between one purchase order and one sales
// order. Sales are created only by the matching step and are immutable
// afterwards.
type Sale struct {
	ID            string
	Timestamp     time.Time
	Buyer         *Buyer
	Seller        *Seller
	ProductID     string
	Price         decimal.Decimal
	Quantity      int
	PurchaseOrder *PurchaseOrder
	SalesOrder    *SalesOrder
}

func NewSale(po *PurchaseOrder, so *SalesOrder, quantity int) *Sale {
	return &Sale{
		ID:            uuid.NewString(),
		Timestamp:     time.Now(),
		Buyer:         po.Buyer,
		Seller:        so.Seller,
		ProductID:     so.ProductID,
		Price:         so.Price,
		Quantity:      quantity,
		PurchaseOrder: po,
		SalesOrder:    so,
	}
}
