package store

import (
	"context"

	"github.com/example/commerce-hub/internal/domain/order"
	"github.com/example/commerce-hub/internal/domain/product"
)

// ProductStore is the port for product persistence. The three stock mutations
// must each be a single conditional write at the storage layer: concurrent
// callers against the same product must never both succeed when their combined
// quantity exceeds the available stock.
//
// All three return false both when the product does not exist and when the
// condition does not hold; callers cannot tell the two apart.
type ProductStore interface {
	Get(ctx context.Context, id string) (*product.Product, error)
	Insert(ctx context.Context, p *product.Product) error

	// DecrementStockIfAvailable subtracts qty from stock iff qty > 0 and
	// stock >= qty, refreshing the update timestamp.
	DecrementStockIfAvailable(ctx context.Context, productID string, qty int) (bool, error)

	// AdjustStockIfAvailable applies a signed delta. A negative delta only
	// succeeds when stock >= |delta|.
	AdjustStockIfAvailable(ctx context.Context, productID string, delta int) (bool, error)

	// ForceIncrementStock unconditionally adds qty (> 0) back to stock. Used
	// for compensation, where there is no sufficiency to check.
	ForceIncrementStock(ctx context.Context, productID string, qty int) (bool, error)
}

// OrderStore is the port for order persistence.
type OrderStore interface {
	Get(ctx context.Context, id string) (*order.Order, error)

	// Insert persists a new order and assigns its identity.
	Insert(ctx context.Context, o *order.Order) error

	// ReplaceIfNotShipped overwrites the order iff it exists and its status is
	// still not shipped at write time. Returns true iff exactly one record was
	// modified; false conflates "not found" and "already shipped".
	ReplaceIfNotShipped(ctx context.Context, id string, replacement *order.Order) (bool, error)
}
