package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/example/commerce-hub/internal/domain/order"
)

// MockOrderStore is an in-memory implementation of OrderStore for testing.
type MockOrderStore struct {
	mu     sync.Mutex
	orders map[string]*order.Order

	// For tracking calls in tests
	InsertCalls  []*order.Order
	ReplaceCalls []ReplaceCall

	// Injectable failures
	GetErr     error
	InsertErr  error
	ReplaceErr error

	// ReplaceCallback, when set, replaces the default replace behavior
	ReplaceCallback func(ctx context.Context, id string, replacement *order.Order) (bool, error)
}

// ReplaceCall records parameters passed to ReplaceIfNotShipped
type ReplaceCall struct {
	OrderID     string
	Replacement *order.Order
}

// NewMockOrderStore creates a new MockOrderStore
func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{orders: make(map[string]*order.Order)}
}

// Seed adds an order directly for testing
func (m *MockOrderStore) Seed(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
}

// Stored returns the currently stored order, if any
func (m *MockOrderStore) Stored(id string) (*order.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

func (m *MockOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderStore) Insert(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return m.InsertErr
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	cp := *o
	m.orders[o.ID] = &cp
	m.InsertCalls = append(m.InsertCalls, &cp)
	return nil
}

func (m *MockOrderStore) ReplaceIfNotShipped(ctx context.Context, id string, replacement *order.Order) (bool, error) {
	m.mu.Lock()
	m.ReplaceCalls = append(m.ReplaceCalls, ReplaceCall{OrderID: id, Replacement: replacement})
	cb := m.ReplaceCallback
	if cb != nil {
		m.mu.Unlock()
		return cb(ctx, id, replacement)
	}
	defer m.mu.Unlock()

	if m.ReplaceErr != nil {
		return false, m.ReplaceErr
	}
	existing, ok := m.orders[id]
	if !ok || existing.Status == order.StatusShipped {
		return false, nil
	}
	replacement.ID = id
	cp := *replacement
	m.orders[id] = &cp
	return true, nil
}
