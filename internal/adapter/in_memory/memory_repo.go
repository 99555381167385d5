package in_memory

import (
	"context"
	"sync"

	"github.com/pkazakov/tradefloor/internal/domain"
	"github.com/pkazakov/tradefloor/internal/port"
)

var _ port.SaleRepository = (*SaleRepo)(nil)

// SaleRepo is an in-memory sale sink for tests and DB-less runs.
type SaleRepo struct {
	mu    sync.Mutex
	sales []*domain.Sale
}

func NewSaleRepo() *SaleRepo {
	return &SaleRepo{}
}

func (r *SaleRepo) SaveSale(_ context.Context, s *domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, s)
	return nil
}

func (r *SaleRepo) Sales() []*domain.Sale {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Sale(nil), r.sales...)
}
