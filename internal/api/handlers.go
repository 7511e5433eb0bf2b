package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/commerce-hub/internal/checkout"
	"github.com/example/commerce-hub/internal/domain/order"
	"github.com/example/commerce-hub/internal/domain/product"
	"github.com/example/commerce-hub/internal/inventory"
	"github.com/example/commerce-hub/internal/orders"
)

type Handlers struct {
	saga      *checkout.Saga
	orders    *orders.Service
	inventory *inventory.Service
}

func NewHandlers(saga *checkout.Saga, ordersSvc *orders.Service, inventorySvc *inventory.Service) *Handlers {
	return &Handlers{
		saga:      saga,
		orders:    ordersSvc,
		inventory: inventorySvc,
	}
}

// Checkout Handlers

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	placed, err := h.saga.Checkout(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrInsufficientStock):
			respondJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, product.ErrProductNotFound):
			respondJSONError(w, err.Error(), http.StatusNotFound)
		case isCheckoutValidationError(err):
			respondJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			respondJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusCreated, placed)
}

func isCheckoutValidationError(err error) bool {
	return errors.Is(err, order.ErrMissingCustomer) ||
		errors.Is(err, checkout.ErrNoItems) ||
		errors.Is(err, checkout.ErrMissingProductID) ||
		errors.Is(err, checkout.ErrInvalidQuantity) ||
		errors.Is(err, checkout.ErrDuplicateProduct)
}

// Order Handlers

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/orders/")

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondJSONError(w, "Order not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) ReplaceOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/orders/")

	var req orders.ReplaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	_, err := h.orders.Replace(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			respondJSONError(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, order.ErrOrderShipped),
			errors.Is(err, orders.ErrNotFoundOrShipped):
			respondJSONError(w, err.Error(), http.StatusConflict)
		case isReplaceValidationError(err):
			respondJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			respondJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isReplaceValidationError(err error) bool {
	return errors.Is(err, order.ErrMissingCustomer) ||
		errors.Is(err, order.ErrEmptyOrder) ||
		errors.Is(err, order.ErrInvalidStatus) ||
		errors.Is(err, orders.ErrMissingProductID) ||
		errors.Is(err, orders.ErrInvalidQuantity) ||
		errors.Is(err, orders.ErrInvalidUnitPrice)
}

// Product Handlers

type adjustStockRequest struct {
	Delta int `json:"delta"`
}

func (h *Handlers) AdjustStock(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/products/")
	id := strings.TrimSuffix(path, "/stock")

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.inventory.AdjustStock(r.Context(), id, req.Delta); err != nil {
		if errors.Is(err, inventory.ErrStockConflict) {
			respondJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createProductRequest struct {
	SKU   string          `json:"sku"`
	Name  string          `json:"name"`
	Stock int             `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p := &product.Product{
		SKU:   req.SKU,
		Name:  req.Name,
		Stock: req.Stock,
		Price: req.Price,
	}
	if err := h.inventory.CreateProduct(r.Context(), p); err != nil {
		if isProductValidationError(err) {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

func isProductValidationError(err error) bool {
	return errors.Is(err, product.ErrInvalidName) ||
		errors.Is(err, product.ErrInvalidSKU) ||
		errors.Is(err, product.ErrInvalidPrice) ||
		errors.Is(err, product.ErrInvalidStock)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")

	p, err := h.inventory.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}
