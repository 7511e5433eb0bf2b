package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const EventOrderCreated = "OrderCreated"

// OrderCreated is published after an order has been persisted. Delivery is
// fire-and-forget: no retry, no outbox, no idempotency key.
type OrderCreated struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
}
