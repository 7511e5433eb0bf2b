package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/commerce-hub/internal/domain/product"
	"github.com/example/commerce-hub/internal/infrastructure/store"
)

// ErrStockConflict is returned when a stock adjustment was rejected. The store
// reports the same failure for a missing product and for insufficient stock,
// so the message names both.
var ErrStockConflict = errors.New("insufficient stock or product not found")

// Service applies direct stock adjustments and manages the product catalog.
type Service struct {
	products store.ProductStore
}

// NewService creates a new inventory service
func NewService(products store.ProductStore) *Service {
	return &Service{products: products}
}

// AdjustStock applies a single signed delta to one product's stock, outside of
// any order context. The store's verdict is reported verbatim; with only one
// operation there is nothing to compensate.
func (s *Service) AdjustStock(ctx context.Context, productID string, delta int) error {
	ok, err := s.products.AdjustStockIfAvailable(ctx, productID, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if !ok {
		return ErrStockConflict
	}
	return nil
}

// CreateProduct validates and inserts a new catalog entry.
func (s *Service) CreateProduct(ctx context.Context, p *product.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.products.Insert(ctx, p)
}

// GetProduct returns a product by id.
func (s *Service) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	return s.products.Get(ctx, id)
}
