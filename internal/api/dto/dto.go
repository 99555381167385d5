package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderAccepted acknowledges that an order was enqueued with its
// partition. It says nothing about whether the order will ever match.
type OrderAccepted struct {
	Msg string `json:"msg"`
	ID  int64  `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MarketPriceResponse struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

type VolumeResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Turnover  decimal.Decimal `json:"turnover"`
	Count     int             `json:"count"`
}
