package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/commerce-hub/internal/domain/order"
	"github.com/example/commerce-hub/internal/domain/product"
	"github.com/example/commerce-hub/internal/infrastructure/store"
)

var (
	ErrNoItems           = errors.New("at least one item is required")
	ErrMissingProductID  = errors.New("product id is required for all items")
	ErrInvalidQuantity   = errors.New("quantity must be greater than 0")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateProduct  = errors.New("duplicate product in items")
)

// EventSink publishes domain events downstream. Delivery is fire-and-forget
// with respect to the saga: no retry and no outbox.
type EventSink interface {
	Publish(ctx context.Context, key string, event any) error
}

// Item is one requested line of a checkout.
type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Request is the checkout input.
type Request struct {
	CustomerID string `json:"customer_id"`
	Items      []Item `json:"items"`
}

// Validate rejects malformed requests before any stock is touched. A product
// id appearing twice is rejected so a single checkout can never decrement the
// same product from two line entries.
func (r Request) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return order.ErrMissingCustomer
	}
	if len(r.Items) == 0 {
		return ErrNoItems
	}
	seen := make(map[string]struct{}, len(r.Items))
	for _, item := range r.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return ErrMissingProductID
		}
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if _, dup := seen[item.ProductID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// reservation is one applied step of the compensation ledger.
type reservation struct {
	productID string
	qty       int
}

// Saga reserves stock per item, builds the order, persists it and emits an
// OrderCreated event. There is no transaction spanning the steps: correctness
// rests on each store call being an indivisible conditional write, and partial
// failure is handled by explicitly compensating the applied reservations.
type Saga struct {
	products store.ProductStore
	orders   store.OrderStore
	events   EventSink
}

// NewSaga creates a new checkout saga
func NewSaga(products store.ProductStore, orders store.OrderStore, events EventSink) *Saga {
	return &Saga{products: products, orders: orders, events: events}
}

// Checkout runs the reservation saga. On success the persisted order is
// returned; on a stock conflict or a product vanishing after reservation, all
// applied reservations are compensated (best-effort) before the error is
// returned. A store error mid-flight propagates without compensation, as does
// cancellation.
func (s *Saga) Checkout(ctx context.Context, req Request) (*order.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Reservation phase: one conditional decrement per item, tracked for
	// compensation.
	var applied []reservation
	for _, item := range req.Items {
		ok, err := s.products.DecrementStockIfAvailable(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve stock: %w", err)
		}
		if !ok {
			s.compensate(ctx, applied)
			return nil, fmt.Errorf("%w for product %s", ErrInsufficientStock, item.ProductID)
		}
		applied = append(applied, reservation{productID: item.ProductID, qty: item.Quantity})
	}

	// Price fetch happens after reservation, not atomically with it. A price
	// change landing between the two steps is reflected in the order.
	items := make([]order.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		p, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrProductNotFound) {
				s.compensate(ctx, applied)
				return nil, fmt.Errorf("%w: %s", product.ErrProductNotFound, item.ProductID)
			}
			return nil, fmt.Errorf("failed to load product %s: %w", item.ProductID, err)
		}
		items = append(items, order.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		})
	}

	now := time.Now()
	o := &order.Order{
		CustomerID: req.CustomerID,
		Items:      items,
		Total:      order.ComputeTotal(items),
		Status:     order.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.orders.Insert(ctx, o); err != nil {
		// Reserved stock stays decremented on this branch.
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	evt := order.OrderCreated{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Total:      o.Total,
		CreatedAt:  o.CreatedAt,
	}
	if err := s.events.Publish(ctx, o.ID, evt); err != nil {
		// The order already exists durably; the caller cannot tell this
		// failure apart from a checkout that never persisted anything.
		return nil, fmt.Errorf("failed to publish %s event: %w", order.EventOrderCreated, err)
	}

	return o, nil
}

// compensate restores applied reservations in the same forward order they were
// applied. Best-effort only: a failed restore is logged and skipped, leaving
// an unrecovered stock deficit.
func (s *Saga) compensate(ctx context.Context, applied []reservation) {
	for _, r := range applied {
		ok, err := s.products.ForceIncrementStock(ctx, r.productID, r.qty)
		if err != nil || !ok {
			log.Printf("[Checkout] Compensation failed for product %s (qty %d): %v", r.productID, r.qty, err)
		}
	}
}
