package port

import (
	"context"

	"github.com/pkazakov/tradefloor/internal/domain"
)

// SaleRepository is the persistence sink for executed sales. Writes are
// at-most-once: a failed batch is logged, never retried.
type SaleRepository interface {
	SaveSale(ctx context.Context, sale *domain.Sale) error
}
