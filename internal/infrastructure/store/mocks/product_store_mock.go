package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/commerce-hub/internal/domain/product"
)

// MockProductStore is an in-memory implementation of ProductStore for testing.
// Each conditional mutation holds the lock for the whole check-and-apply, so
// it is atomic with respect to concurrent callers, like the production
// adapters.
type MockProductStore struct {
	mu       sync.Mutex
	products map[string]*product.Product

	// For tracking calls in tests
	DecrementCalls      []StockCall
	AdjustCalls         []StockCall
	ForceIncrementCalls []StockCall

	// Injectable failures
	GetErr            error
	DecrementErr      error
	AdjustErr         error
	ForceIncrementErr error
	ForceIncrementOK  bool

	// DecrementCallback, when set, replaces the default decrement behavior
	DecrementCallback func(ctx context.Context, productID string, qty int) (bool, error)
}

// StockCall records parameters passed to a stock mutation
type StockCall struct {
	ProductID string
	Qty       int
}

// NewMockProductStore creates a new MockProductStore
func NewMockProductStore() *MockProductStore {
	return &MockProductStore{
		products:         make(map[string]*product.Product),
		ForceIncrementOK: true,
	}
}

// Seed adds a product directly for testing
func (m *MockProductStore) Seed(p *product.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
}

// Remove deletes a product directly, simulating removal between saga steps
func (m *MockProductStore) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

// Stock returns the current stock of a product
func (m *MockProductStore) Stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		return p.Stock
	}
	return 0
}

func (m *MockProductStore) Get(ctx context.Context, id string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProductStore) Insert(ctx context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *MockProductStore) DecrementStockIfAvailable(ctx context.Context, productID string, qty int) (bool, error) {
	m.mu.Lock()
	m.DecrementCalls = append(m.DecrementCalls, StockCall{ProductID: productID, Qty: qty})
	cb := m.DecrementCallback
	if cb != nil {
		// Run the callback outside the lock so it may call back into the
		// store.
		m.mu.Unlock()
		return cb(ctx, productID, qty)
	}
	defer m.mu.Unlock()

	if m.DecrementErr != nil {
		return false, m.DecrementErr
	}
	if qty <= 0 {
		return false, nil
	}
	p, ok := m.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockProductStore) AdjustStockIfAvailable(ctx context.Context, productID string, delta int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AdjustCalls = append(m.AdjustCalls, StockCall{ProductID: productID, Qty: delta})

	if m.AdjustErr != nil {
		return false, m.AdjustErr
	}
	p, ok := m.products[productID]
	if !ok {
		return false, nil
	}
	if delta < 0 && p.Stock < -delta {
		return false, nil
	}
	p.Stock += delta
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockProductStore) ForceIncrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ForceIncrementCalls = append(m.ForceIncrementCalls, StockCall{ProductID: productID, Qty: qty})

	if m.ForceIncrementErr != nil {
		return false, m.ForceIncrementErr
	}
	if !m.ForceIncrementOK {
		return false, nil
	}
	if qty <= 0 {
		return false, nil
	}
	p, ok := m.products[productID]
	if !ok {
		return false, nil
	}
	p.Stock += qty
	p.UpdatedAt = time.Now()
	return true, nil
}
