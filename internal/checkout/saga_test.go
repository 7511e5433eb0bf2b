package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/commerce-hub/internal/domain/order"
	"github.com/example/commerce-hub/internal/domain/product"
	"github.com/example/commerce-hub/internal/infrastructure/store/mocks"
)

func newTestSaga() (*Saga, *mocks.MockProductStore, *mocks.MockOrderStore, *mocks.MockEventSink) {
	products := mocks.NewMockProductStore()
	orders := mocks.NewMockOrderStore()
	sink := mocks.NewMockEventSink()
	return NewSaga(products, orders, sink), products, orders, sink
}

func seedProduct(products *mocks.MockProductStore, id string, stock int, price int64) {
	products.Seed(&product.Product{
		ID:    id,
		SKU:   "SKU-" + id,
		Name:  "Product " + id,
		Stock: stock,
		Price: decimal.NewFromInt(price),
	})
}

// ============================================
// Successful checkout
// ============================================

func TestSaga_Checkout_Success(t *testing.T) {
	saga, products, orders, sink := newTestSaga()
	ctx := context.Background()

	seedProduct(products, "p1", 5, 10)
	seedProduct(products, "p2", 3, 7)

	req := Request{
		CustomerID: "c1",
		Items: []Item{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	}

	o, err := saga.Checkout(ctx, req)

	require.NoError(t, err)
	require.NotNil(t, o)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "c1", o.CustomerID)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.True(t, decimal.NewFromInt(27).Equal(o.Total), "total should be 27, got %s", o.Total)
	assert.Equal(t, o.CreatedAt, o.UpdatedAt)
	assert.Len(t, o.Items, 2)
	assert.True(t, decimal.NewFromInt(10).Equal(o.Items[0].UnitPrice))

	assert.Equal(t, 3, products.Stock("p1"))
	assert.Equal(t, 2, products.Stock("p2"))

	require.Len(t, orders.InsertCalls, 1)
	require.Len(t, sink.PublishCalls, 1)
	evt, ok := sink.PublishCalls[0].Event.(order.OrderCreated)
	require.True(t, ok)
	assert.Equal(t, o.ID, evt.OrderID)
	assert.Equal(t, "c1", evt.CustomerID)
	assert.True(t, decimal.NewFromInt(27).Equal(evt.Total))
	assert.Equal(t, o.CreatedAt, evt.CreatedAt)
}

// ============================================
// Validation
// ============================================

func TestSaga_Checkout_MissingCustomer(t *testing.T) {
	saga, products, _, sink := newTestSaga()

	_, err := saga.Checkout(context.Background(), Request{
		CustomerID: "   ",
		Items:      []Item{{ProductID: "p1", Quantity: 1}},
	})

	assert.ErrorIs(t, err, order.ErrMissingCustomer)
	assert.Empty(t, products.DecrementCalls)
	assert.Empty(t, sink.PublishCalls)
}

func TestSaga_Checkout_NoItems(t *testing.T) {
	saga, products, _, _ := newTestSaga()

	_, err := saga.Checkout(context.Background(), Request{CustomerID: "c1"})

	assert.ErrorIs(t, err, ErrNoItems)
	assert.Empty(t, products.DecrementCalls)
}

func TestSaga_Checkout_InvalidQuantity(t *testing.T) {
	saga, products, _, _ := newTestSaga()
	seedProduct(products, "p1", 5, 10)

	for _, qty := range []int{0, -3} {
		_, err := saga.Checkout(context.Background(), Request{
			CustomerID: "c1",
			Items:      []Item{{ProductID: "p1", Quantity: qty}},
		})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}

	// No mutation was attempted
	assert.Empty(t, products.DecrementCalls)
	assert.Equal(t, 5, products.Stock("p1"))
}

func TestSaga_Checkout_DuplicateProduct(t *testing.T) {
	saga, products, _, _ := newTestSaga()
	seedProduct(products, "p1", 5, 10)

	_, err := saga.Checkout(context.Background(), Request{
		CustomerID: "c1",
		Items: []Item{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p1", Quantity: 2},
		},
	})

	assert.ErrorIs(t, err, ErrDuplicateProduct)
	assert.Contains(t, err.Error(), "p1")
	assert.Empty(t, products.DecrementCalls)
	assert.Equal(t, 5, products.Stock("p1"))
}

func TestSaga_Checkout_MissingProductID(t *testing.T) {
	saga, products, _, _ := newTestSaga()

	_, err := saga.Checkout(context.Background(), Request{
		CustomerID: "c1",
		Items:      []Item{{ProductID: " ", Quantity: 1}},
	})

	assert.ErrorIs(t, err, ErrMissingProductID)
	assert.Empty(t, products.DecrementCalls)
}

// ============================================
// Compensation
// ============================================

func TestSaga_Checkout_InsufficientStock_Compensates(t *testing.T) {
	saga, products, orders, sink := newTestSaga()
	ctx := context.Background()

	seedProduct(products, "p1", 5, 10)
	seedProduct(products, "p2", 0, 7)

	_, err := saga.Checkout(ctx, Request{
		CustomerID: "c1",
		Items: []Item{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "p2")

	// p1 was restored, nothing persisted, nothing published
	assert.Equal(t, 5, products.Stock("p1"))
	assert.Empty(t, orders.InsertCalls)
	assert.Empty(t, sink.PublishCalls)
}

func TestSaga_Checkout_CompensationRunsInForwardOrder(t *testing.T) {
	saga, products, _, _ := newTestSaga()
	ctx := context.Background()

	seedProduct(products, "p1", 5, 10)
	seedProduct(products, "p2", 5, 10)
	seedProduct(products, "p3", 0, 10)

	_, err := saga.Checkout(ctx, Request{
		CustomerID: "c1",
		Items: []Item{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 2},
			{ProductID: "p3", Quantity: 1},
		},
	})

	require.ErrorIs(t, err, ErrInsufficientStock)

	// Same forward order they were applied in, not reversed
	require.Len(t, products.ForceIncrementCalls, 2)
	assert.Equal(t, mocks.StockCall{ProductID: "p1", Qty: 1}, products.ForceIncrementCalls[0])
	assert.Equal(t, mocks.StockCall{ProductID: "p2", Qty: 2}, products.ForceIncrementCalls[1])
	assert.Equal(t, 5, products.Stock("p1"))
	assert.Equal(t, 5, products.Stock("p2"))
}

func TestSaga_Checkout_CompensationFailureIsSwallowed(t *testing.T) {
	saga, products, _, _ := newTestSaga()
	ctx := context.Background()

	seedProduct(products, "p1", 5, 10)
	seedProduct(products, "p2", 0, 7)
	products.ForceIncrementErr = errors.New("store unreachable")

	_, err := saga.Checkout(ctx, Request{
		CustomerID: "c1",
		Items: []Item{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})

	// The stock-conflict error surfaces, not the compensation failure, and
	// the deficit stays: no retry is attempted.
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Len(t, products.ForceIncrementCalls, 1)
	assert.Equal(t, 3, products.Stock("p1"))
}

func TestSaga_Checkout_ProductVanishedAfterReservation(t *testing.T) {
	saga, products, orders, sink := newTestSaga()
	ctx := context.Background()

	seedProduct(products, "p1", 5, 10)
	seedProduct(products, "p2", 3, 7)

	// Drop p2 the moment its stock is reserved, so the later price fetch
	// finds it gone.
	products.DecrementCallback = func(cbCtx context.Context, productID string, qty int) (bool, error) {
		ok, err := products.AdjustStockIfAvailable(cbCtx, productID, -qty)
		if ok && productID == "p2" {
			products.Remove("p2")
		}
		return ok, err
	}

	o, err := saga.Checkout(ctx, Request{
		CustomerID: "c1",
		Items: []Item{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})

	require.ErrorIs(t, err, product.ErrProductNotFound)
	assert.Nil(t, o)
	assert.Contains(t, err.Error(), "p2")

	// Both reservations were compensated in forward order; the p2 restore
	// fails best-effort because the product is gone.
	require.Len(t, products.ForceIncrementCalls, 2)
	assert.Equal(t, "p1", products.ForceIncrementCalls[0].ProductID)
	assert.Equal(t, "p2", products.ForceIncrementCalls[1].ProductID)
	assert.Equal(t, 5, products.Stock("p1"))
	assert.Empty(t, orders.InsertCalls)
	assert.Empty(t, sink.PublishCalls)
}

// ============================================
// Persistence and emission failures
// ============================================

func TestSaga_Checkout_PersistFailureLeavesStockReserved(t *testing.T) {
	saga, products, orders, sink := newTestSaga()
	ctx := context.Background()

	seedProduct(products, "p1", 5, 10)
	orders.InsertErr = errors.New("orders store down")

	_, err := saga.Checkout(ctx, Request{
		CustomerID: "c1",
		Items:      []Item{{ProductID: "p1", Quantity: 2}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist order")

	// Reserved stock is not compensated on this branch.
	assert.Equal(t, 3, products.Stock("p1"))
	assert.Empty(t, products.ForceIncrementCalls)
	assert.Empty(t, sink.PublishCalls)
}

func TestSaga_Checkout_PublishFailureAfterPersist(t *testing.T) {
	saga, products, orders, sink := newTestSaga()
	ctx := context.Background()

	seedProduct(products, "p1", 5, 10)
	sink.PublishErr = errors.New("broker unreachable")

	o, err := saga.Checkout(ctx, Request{
		CustomerID: "c1",
		Items:      []Item{{ProductID: "p1", Quantity: 2}},
	})

	// The error propagates even though the order durably exists.
	require.Error(t, err)
	assert.Nil(t, o)
	assert.Len(t, orders.InsertCalls, 1)
	assert.Equal(t, 3, products.Stock("p1"))
}

// ============================================
// Cancellation
// ============================================

func TestSaga_Checkout_CancellationSkipsCompensation(t *testing.T) {
	saga, products, _, _ := newTestSaga()
	ctx, cancel := context.WithCancel(context.Background())

	seedProduct(products, "p1", 5, 10)
	seedProduct(products, "p2", 5, 10)

	// Cancel after the first reservation has been applied; the second store
	// call then fails with the context error.
	calls := 0
	products.DecrementCallback = func(cbCtx context.Context, productID string, qty int) (bool, error) {
		calls++
		if calls == 1 {
			cancel()
			return true, nil
		}
		return false, cbCtx.Err()
	}

	_, err := saga.Checkout(ctx, Request{
		CustomerID: "c1",
		Items: []Item{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})

	// The saga aborts without compensating the applied reservation.
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, products.ForceIncrementCalls)
}

// ============================================
// Concurrency
// ============================================

func TestSaga_Checkout_NoOversellUnderConcurrency(t *testing.T) {
	saga, products, _, sink := newTestSaga()
	ctx := context.Background()

	const stock = 10
	const attempts = 20
	const qty = 2

	seedProduct(products, "p1", stock, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := saga.Checkout(ctx, Request{
				CustomerID: "c1",
				Items:      []Item{{ProductID: "p1", Quantity: qty}},
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Successful reservations never exceed the available stock.
	assert.LessOrEqual(t, successes*qty, stock)
	assert.Equal(t, stock-successes*qty, products.Stock("p1"))
	assert.GreaterOrEqual(t, products.Stock("p1"), 0)
	assert.Len(t, sink.PublishCalls, successes)
}
