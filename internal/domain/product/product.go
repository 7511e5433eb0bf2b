package product

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidName     = errors.New("product name is required")
	ErrInvalidSKU      = errors.New("product sku is required")
	ErrInvalidPrice    = errors.New("product price cannot be negative")
	ErrInvalidStock    = errors.New("product stock cannot be negative")
)

// Product is owned by the product store. Stock is only ever changed through
// the store's conditional operations and must never go negative.
type Product struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Stock     int             `json:"stock"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Validate checks a product before it is inserted into the catalog.
func (p *Product) Validate() error {
	if p.Name == "" {
		return ErrInvalidName
	}
	if p.SKU == "" {
		return ErrInvalidSKU
	}
	if p.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}
