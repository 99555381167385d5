package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketPrice is the last known price of a product, replaced only by a
// strictly newer sale.
type MarketPrice struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// VolumeRecord is one windowed volume sample for a product: quantity
// sold, turnover and number of sales at a point in time. Samples older
// than the retention window are pruned on every update pass.
type VolumeRecord struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Turnover  decimal.Decimal `json:"turnover"`
	Timestamp time.Time       `json:"timestamp"`
	Count     int             `json:"count"`
}

func NewVolumeRecord(sale *Sale) VolumeRecord {
	return VolumeRecord{
		ProductID: sale.ProductID,
		Quantity:  sale.Quantity,
		Turnover:  sale.Price.Mul(decimal.NewFromInt(int64(sale.Quantity))),
		Timestamp: sale.Timestamp,
		Count:     1,
	}
}

// Add merges two samples; the timestamp is dropped since an aggregate
// spans a window rather than an instant.
func (v VolumeRecord) Add(o VolumeRecord) VolumeRecord {
	return VolumeRecord{
		ProductID: v.ProductID,
		Quantity:  v.Quantity + o.Quantity,
		Turnover:  v.Turnover.Add(o.Turnover),
		Count:     v.Count + o.Count,
	}
}

// AggregateVolume sums a product's samples into a single record.
func AggregateVolume(productID string, records []VolumeRecord) VolumeRecord {
	agg := VolumeRecord{ProductID: productID, Turnover: decimal.Zero}
	for _, r := range records {
		agg = agg.Add(r)
	}
	return agg
}

// MarketInfo counts the open orders per product across one market at
// the start of a sitting.
type MarketInfo struct {
	PurchaseOrders map[string]int `json:"purchase_orders"`
	SalesOrders    map[string]int `json:"sales_orders"`
}
