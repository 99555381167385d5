package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkazakov/tradefloor/internal/domain"
	"github.com/pkazakov/tradefloor/internal/port"
)

var _ port.SaleRepository = (*SaleRepo)(nil)

// SaleRepo persists executed sales to Postgres. It is the only write
// path of the system; the core never reads sales back.
type SaleRepo struct {
	pool *pgxpool.Pool
}

// NewSaleRepo connects a pool to the given dsn. Call Close when
// finished working with the database.
func NewSaleRepo(ctx context.Context, dsn string) (*SaleRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &SaleRepo{pool: pool}, nil
}

func (r *SaleRepo) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *SaleRepo) SaveSale(ctx context.Context, s *domain.Sale) error {
	if s == nil {
		return errors.New("nil sale")
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO sales(buyer_name, seller_name, product_id, price, quantity, po_id, so_id)
VALUES($1,$2,$3,$4,$5,$6,$7)
`, s.Buyer.Name, s.Seller.Name, s.ProductID, s.Price, s.Quantity, s.PurchaseOrder.ID, s.SalesOrder.ID)
	if err != nil {
		return fmt.Errorf("pg: insert sale: %w", err)
	}
	return nil
}
