package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/shopspring/decimal"

	"github.com/example/commerce-hub/internal/domain/order"
	"github.com/example/commerce-hub/internal/email"
	"github.com/example/commerce-hub/internal/infrastructure/store"
)

// Sender delivers order confirmation emails.
type Sender interface {
	SendOrderConfirmation(to, orderID string, total decimal.Decimal, items []email.OrderItem) error
}

// Handler processes events for sending notifications
type Handler struct {
	sender   Sender
	orders   store.OrderStore
	products store.ProductStore
}

// NewHandler creates a new notification handler
func NewHandler(sender Sender, orders store.OrderStore, products store.ProductStore) *Handler {
	return &Handler{
		sender:   sender,
		orders:   orders,
		products: products,
	}
}

// HandleEvent processes an event from Kafka. The topic currently carries only
// OrderCreated events.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var e order.OrderCreated
	if err := json.Unmarshal(value, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}
	if e.OrderID == "" {
		log.Printf("[Notifier] Skipping event without order id (key %s)", string(key))
		return nil
	}

	return h.handleOrderCreated(ctx, e)
}

func (h *Handler) handleOrderCreated(ctx context.Context, e order.OrderCreated) error {
	log.Printf("[Notifier] Processing %s event for order %s, customer %s", order.EventOrderCreated, e.OrderID, e.CustomerID)

	o, err := h.orders.Get(ctx, e.OrderID)
	if err != nil {
		log.Printf("[Notifier] Error loading order %s: %v", e.OrderID, err)
		return nil
	}

	emailItems := make([]email.OrderItem, len(o.Items))
	for i, item := range o.Items {
		// Resolve the product name if it is still in the catalog
		productName := item.ProductID
		if p, err := h.products.Get(ctx, item.ProductID); err == nil {
			productName = p.Name
		}

		emailItems[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      productName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	if err := h.sender.SendOrderConfirmation(o.CustomerID, e.OrderID, o.Total, emailItems); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", o.CustomerID, err)
		return err
	}

	log.Printf("[Notifier] Order confirmation email sent to %s for order %s", o.CustomerID, e.OrderID)
	return nil
}
