package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/commerce-hub/internal/domain/order"
	"github.com/example/commerce-hub/internal/infrastructure/store"
)

var (
	ErrMissingProductID = errors.New("product id is required for all items")
	ErrInvalidQuantity  = errors.New("quantity must be greater than 0")
	ErrInvalidUnitPrice = errors.New("unit price cannot be negative")

	// ErrNotFoundOrShipped is returned when the conditional replace modified
	// nothing: the order either disappeared or shipped between the pre-check
	// and the write. The two causes are indistinguishable after the fact.
	ErrNotFoundOrShipped = errors.New("order not found or already shipped")
)

// ReplaceItem is one line of a replacement payload. Unlike checkout, the
// caller supplies the unit price.
type ReplaceItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ReplaceRequest replaces the full item set, customer and status of an order.
type ReplaceRequest struct {
	CustomerID string        `json:"customer_id"`
	Items      []ReplaceItem `json:"items"`
	Status     order.Status  `json:"status"`
}

// Validate rejects malformed replacement payloads.
func (r ReplaceRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return order.ErrMissingCustomer
	}
	if len(r.Items) == 0 {
		return order.ErrEmptyOrder
	}
	for _, item := range r.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return ErrMissingProductID
		}
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if item.UnitPrice.IsNegative() {
			return ErrInvalidUnitPrice
		}
	}
	if r.Status != "" && !order.ValidStatus(r.Status) {
		return fmt.Errorf("%w: %s", order.ErrInvalidStatus, r.Status)
	}
	return nil
}

// Service guards order mutation: an order can be replaced only while it has
// not shipped.
type Service struct {
	orders store.OrderStore
}

// NewService creates a new orders service
func NewService(orders store.OrderStore) *Service {
	return &Service{orders: orders}
}

func (s *Service) Get(ctx context.Context, id string) (*order.Order, error) {
	return s.orders.Get(ctx, id)
}

// Replace swaps the order's items, customer and status. The original creation
// time is preserved and the total recomputed from the new items. The shipped
// pre-check is advisory, for a precise error; the conditional replace is what
// actually holds the terminal-state invariant under concurrency.
func (s *Service) Replace(ctx context.Context, id string, req ReplaceRequest) (*order.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == order.StatusShipped {
		return nil, order.ErrOrderShipped
	}

	status := req.Status
	if status == "" {
		status = order.StatusPending
	}

	items := make([]order.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, order.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	replacement := &order.Order{
		ID:         id,
		CustomerID: req.CustomerID,
		Items:      items,
		Total:      order.ComputeTotal(items),
		Status:     status,
		CreatedAt:  existing.CreatedAt,
		UpdatedAt:  time.Now(),
	}

	ok, err := s.orders.ReplaceIfNotShipped(ctx, id, replacement)
	if err != nil {
		return nil, fmt.Errorf("failed to replace order: %w", err)
	}
	if !ok {
		return nil, ErrNotFoundOrShipped
	}
	return replacement, nil
}
