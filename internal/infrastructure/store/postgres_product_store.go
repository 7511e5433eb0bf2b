package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/commerce-hub/internal/domain/product"
)

// PostgresProductStore implements ProductStore using PostgreSQL. Every stock
// mutation is a single UPDATE whose WHERE clause carries the sufficiency
// predicate, judged by the number of rows modified. There is no
// read-then-write anywhere in this file.
type PostgresProductStore struct {
	db *sql.DB
}

// NewPostgresProductStore creates a new PostgreSQL-based product store
func NewPostgresProductStore(db *sql.DB) *PostgresProductStore {
	return &PostgresProductStore{db: db}
}

func (s *PostgresProductStore) Get(ctx context.Context, id string) (*product.Product, error) {
	var p product.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, sku, name, stock, price, updated_at FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.SKU, &p.Name, &p.Stock, &p.Price, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, product.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (s *PostgresProductStore) Insert(ctx context.Context, p *product.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.UpdatedAt = time.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, sku, name, stock, price, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.SKU, p.Name, p.Stock, p.Price, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (s *PostgresProductStore) DecrementStockIfAvailable(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2`,
		productID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return modifiedOne(res)
}

func (s *PostgresProductStore) AdjustStockIfAvailable(ctx context.Context, productID string, delta int) (bool, error) {
	// A positive delta only requires the product to exist; a negative delta
	// additionally requires stock >= |delta|.
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1 AND stock + $2 >= 0`,
		productID, delta,
	)
	if err != nil {
		return false, fmt.Errorf("failed to adjust stock: %w", err)
	}
	return modifiedOne(res)
}

func (s *PostgresProductStore) ForceIncrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`,
		productID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("failed to increment stock: %w", err)
	}
	return modifiedOne(res)
}

func modifiedOne(res sql.Result) (bool, error) {
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
