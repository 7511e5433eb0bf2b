package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/commerce-hub/internal/domain/order"
)

// PostgresOrderStore implements OrderStore using PostgreSQL. Order items are
// stored as a JSONB column; the conditional replace is a single UPDATE guarded
// on the status column.
type PostgresOrderStore struct {
	db *sql.DB
}

// NewPostgresOrderStore creates a new PostgreSQL-based order store
func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

func (s *PostgresOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	var itemsJSON []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, customer_id, items, total, status, created_at, updated_at FROM orders WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.CustomerID, &itemsJSON, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	return &o, nil
}

func (s *PostgresOrderStore) Insert(ctx context.Context, o *order.Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, items, total, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.CustomerID, itemsJSON, o.Total, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *PostgresOrderStore) ReplaceIfNotShipped(ctx context.Context, id string, replacement *order.Order) (bool, error) {
	itemsJSON, err := json.Marshal(replacement.Items)
	if err != nil {
		return false, fmt.Errorf("failed to marshal order items: %w", err)
	}

	replacement.ID = id

	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET customer_id = $2, items = $3, total = $4, status = $5, updated_at = $6
		 WHERE id = $1 AND status <> $7`,
		id, replacement.CustomerID, itemsJSON, replacement.Total, replacement.Status,
		replacement.UpdatedAt, order.StatusShipped,
	)
	if err != nil {
		return false, fmt.Errorf("failed to replace order: %w", err)
	}
	return modifiedOne(res)
}
