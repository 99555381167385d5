package core

import (
	"sort"

	"go.uber.org/zap"

	"github.com/pkazakov/tradefloor/internal/domain"
)

// Market is the order book for one partition: its buyers, sellers and
// their live orders. A market contains 0..n sellers, each holding sales
// orders for a quantity of a product at a fixed price, and 0..m buyers
// holding purchase orders capped at a maximum accepted price. Trading
// happens in discrete sittings; see Trade.
//
// Participants are identified by name. Registration keeps both a slice
// (registration order matters for tie-breaks) and a name index, so a
// resubmitted name always reuses the first-created instance.
type Market struct {
	sellers       []*domain.Seller
	buyers        []*domain.Buyer
	sellersByName map[string]*domain.Seller
	buyersByName  map[string]*domain.Buyer

	info domain.MarketInfo

	log *zap.Logger
}

func NewMarket(log *zap.Logger) *Market {
	return &Market{
		sellersByName: make(map[string]*domain.Seller),
		buyersByName:  make(map[string]*domain.Buyer),
		log:           log,
	}
}

// AddSeller registers a seller under the given name, or returns the
// existing one if the name is already known.
func (m *Market) AddSeller(name string) *domain.Seller {
	if s, ok := m.sellersByName[name]; ok {
		return s
	}
	m.log.Debug("registering new seller", zap.String("seller", name))
	s := domain.NewSeller(name)
	m.sellers = append(m.sellers, s)
	m.sellersByName[name] = s
	return s
}

// AddBuyer registers a buyer under the given name, or returns the
// existing one if the name is already known.
func (m *Market) AddBuyer(name string) *domain.Buyer {
	if b, ok := m.buyersByName[name]; ok {
		return b
	}
	m.log.Debug("registering new buyer", zap.String("buyer", name))
	b := domain.NewBuyer(name)
	m.buyers = append(m.buyers, b)
	m.buyersByName[name] = b
	return b
}

func (m *Market) Sellers() []*domain.Seller { return m.sellers }
func (m *Market) Buyers() []*domain.Buyer   { return m.buyers }

// Trade executes one sitting: for each product on offer, the single
// cheapest sales order is matched against interested buyers in buyer
// registration order until it is exhausted. A buyer always goes to the
// cheapest seller, even if that seller cannot cover the full demand;
// unmet demand waits for the next sitting, which may pick a different
// seller. Once the chosen sales order sells out the product is done for
// this sitting, regardless of remaining pricier sellers.
func (m *Market) Trade() []*domain.Sale {
	var sales []*domain.Sale

	m.collectMarketInfo()

	for _, productID := range m.ProductsInMarket() {
		m.log.Debug("trading product", zap.String("productId", productID))

		buyers := m.BuyersInterestedIn(productID)
		if len(buyers) == 0 {
			m.log.Info("no buyers interested in product", zap.String("productId", productID))
			continue
		}

		seller := m.cheapestSellerFor(productID)
		if seller == nil {
			// cannot happen while the product is listed; guards a
			// future caller racing expiry
			m.log.Warn("market sold out of product", zap.String("productId", productID))
			continue
		}
		m.log.Debug("cheapest seller selected",
			zap.String("productId", productID),
			zap.String("seller", seller.Name))

		for _, buyer := range buyers {
			newSales, soldOut := m.createSales(buyer, seller, productID)
			sales = append(sales, newSales...)
			if soldOut {
				break
			}
		}
	}

	return sales
}

// cheapestSellerFor returns the seller whose cheapest sales order for
// the product has the lowest price. Among equal prices the seller
// registered first wins.
func (m *Market) cheapestSellerFor(productID string) *domain.Seller {
	var (
		best      *domain.Seller
		bestOrder *domain.SalesOrder
	)
	for _, s := range m.sellers {
		if !s.HasProduct(productID) {
			continue
		}
		so, err := s.CheapestSalesOrder(productID)
		if err != nil {
			continue
		}
		if best == nil || so.Price.LessThan(bestOrder.Price) {
			best = s
			bestOrder = so
		}
	}
	return best
}

// createSales matches the given buyer against the seller's cheapest
// sales order for the product. It iterates the buyer's affordable
// purchase orders in insertion order while the sales order still has
// stock, reducing both sides and removing orders that hit zero. The
// second return value reports that the sales order sold out, ending the
// product's sitting.
func (m *Market) createSales(buyer *domain.Buyer, seller *domain.Seller, productID string) ([]*domain.Sale, bool) {
	so, err := seller.CheapestSalesOrder(productID)
	if err != nil {
		// seller sold out between selection and matching
		return nil, true
	}

	var sales []*domain.Sale
	for _, po := range buyer.RelevantPurchaseOrders(productID, so.Price) {
		if so.RemainingQuantity == 0 {
			break
		}
		quantity := min(so.RemainingQuantity, po.RemainingQuantity)
		if quantity <= 0 {
			continue
		}

		sale := domain.NewSale(po, so, quantity)
		sales = append(sales, sale)
		m.log.Debug("created sale",
			zap.String("productId", productID),
			zap.String("buyer", buyer.Name),
			zap.String("seller", seller.Name),
			zap.Int("quantity", quantity),
			zap.String("price", so.Price.String()))

		po.ReduceRemaining(quantity)
		so.ReduceRemaining(quantity)

		if po.RemainingQuantity == 0 {
			buyer.RemovePurchaseOrder(po)
		}
	}

	if so.RemainingQuantity == 0 {
		m.log.Debug("sales order complete", zap.Int64("salesOrderId", so.ID))
		seller.RemoveSalesOrder(so)
		return sales, true
	}
	return sales, false
}

// BuyersInterestedIn returns all buyers holding at least one purchase
// order for the product, in registration order.
func (m *Market) BuyersInterestedIn(productID string) []*domain.Buyer {
	var interested []*domain.Buyer
	for _, b := range m.buyers {
		for _, po := range b.PurchaseOrders() {
			if po.ProductID == productID {
				interested = append(interested, b)
				break
			}
		}
	}
	return interested
}

// ProductsInMarket returns the distinct product ids currently offered
// by any seller, sorted for deterministic sitting order.
func (m *Market) ProductsInMarket() []string {
	seen := make(map[string]struct{})
	var products []string
	for _, s := range m.sellers {
		for _, so := range s.SalesOrders() {
			if _, ok := seen[so.ProductID]; !ok {
				seen[so.ProductID] = struct{}{}
				products = append(products, so.ProductID)
			}
		}
	}
	sort.Strings(products)
	return products
}

// collectMarketInfo snapshots per-product open-order counts at the
// start of a sitting.
func (m *Market) collectMarketInfo() {
	info := domain.MarketInfo{
		PurchaseOrders: make(map[string]int),
		SalesOrders:    make(map[string]int),
	}
	for _, b := range m.buyers {
		for _, po := range b.PurchaseOrders() {
			info.PurchaseOrders[po.ProductID]++
		}
	}
	for _, s := range m.sellers {
		for _, so := range s.SalesOrders() {
			info.SalesOrders[so.ProductID]++
		}
	}
	m.info = info
}

func (m *Market) MarketInfo() domain.MarketInfo { return m.info }
