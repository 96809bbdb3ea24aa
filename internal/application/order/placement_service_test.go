package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/cache"
)

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func testAddress() valueobject.Address {
	return valueobject.Address{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "555-0100",
		Address:   "1 Main St",
		City:      "Toronto",
		State:     "ON",
		ZipCode:   "M5V 1A1",
		Country:   "Canada",
	}
}

func testRequest(key string) order.PlaceOrderRequest {
	return order.PlaceOrderRequest{
		Total:  decimal.RequireFromString("40.00"),
		Status: order.StatusPending,
		Items: []order.LineItem{
			{ProductID: "p1", ProductName: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("15.00")},
			{ProductID: "p2", ProductName: "Coaster", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
		Shipping:       testAddress(),
		Billing:        testAddress(),
		SameAsShipping: true,
		IdempotencyKey: key,
	}
}

func fixedNumbers(start int64) *NumberGenerator {
	g := NewNumberGenerator()
	g.now = func() time.Time { return time.UnixMilli(start) }
	return g
}

func newTestService(repo order.Repository, store shared.IdempotencyStore) *PlacementService {
	return NewPlacementService(PlacementServiceConfig{
		Repo:        repo,
		Idempotency: store,
		Numbers:     fixedNumbers(1700000000000),
	})
}

func TestPlacementService_PlaceOrder_Guest(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := newTestService(repo, nil)

	result, err := svc.PlaceOrder(context.Background(), testRequest(""), "")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1700000000000", result.OrderID)
	assert.False(t, result.Replayed)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPlacementService_PlaceOrder_SignedIn(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	repo.On("FindByIdempotencyKey", mock.Anything, "k1").Return(nil, shared.ErrNotFound)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return o.OrderNumber == "ORD-1700000000000" &&
			o.UserID == "user-1" &&
			o.Status == order.StatusPending &&
			o.IdempotencyKey == "k1" &&
			o.Total.Amount().Equal(decimal.RequireFromString("40.00"))
	})).Return(nil)

	result, err := svc.PlaceOrder(ctx, testRequest("k1"), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1700000000000", result.OrderID)
	repo.AssertExpectations(t)
}

func TestPlacementService_PlaceOrder_InvalidRequest(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := newTestService(repo, nil)

	req := testRequest("")
	req.Items = nil

	_, err := svc.PlaceOrder(context.Background(), req, "user-1")
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "EMPTY_ORDER", domainErr.Code)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPlacementService_PlaceOrder_IdempotentReplay(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	svc := newTestService(nil, store)
	ctx := context.Background()

	first, err := svc.PlaceOrder(ctx, testRequest("retry-key"), "")
	require.NoError(t, err)

	second, err := svc.PlaceOrder(ctx, testRequest("retry-key"), "")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.OrderID, second.OrderID)

	third, err := svc.PlaceOrder(ctx, testRequest("other-key"), "")
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderID, third.OrderID)
}

func TestPlacementService_PlaceOrder_KeysScopedPerUser(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	repo := new(MockOrderRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(repo, store)
	ctx := context.Background()

	a, err := svc.PlaceOrder(ctx, testRequest("shared-key"), "user-a")
	require.NoError(t, err)
	b, err := svc.PlaceOrder(ctx, testRequest("shared-key"), "user-b")
	require.NoError(t, err)

	assert.False(t, b.Replayed)
	assert.NotEqual(t, a.OrderID, b.OrderID)
}

func TestPlacementService_PlaceOrder_SaveFailureReleasesKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	repo := new(MockOrderRepository)
	svc := newTestService(repo, store)
	ctx := context.Background()

	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	_, err := svc.PlaceOrder(ctx, testRequest("k"), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create order")

	repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	result, err := svc.PlaceOrder(ctx, testRequest("k"), "user-1")
	require.NoError(t, err)
	assert.False(t, result.Replayed, "a failed placement must not bind the key")
}

func TestPlacementService_PlaceOrder_RepositoryReplay(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	prior := &order.Order{OrderNumber: "ORD-1", UserID: "user-1"}
	repo.On("FindByIdempotencyKey", mock.Anything, "k").Return(prior, nil)

	result, err := svc.PlaceOrder(ctx, testRequest("k"), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", result.OrderID)
	assert.True(t, result.Replayed)

	_, err = svc.PlaceOrder(ctx, testRequest("k"), "user-2")
	assert.ErrorIs(t, err, shared.ErrConflict)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func placedOrder(t *testing.T, number, userID string) *order.Order {
	t.Helper()
	o, err := order.NewOrder(number, userID, testRequest(""))
	require.NoError(t, err)
	return o
}

func TestPlacementService_GetOrder(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	repo.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(placedOrder(t, "ORD-1", "user-1"), nil)
	repo.On("FindByOrderNumber", mock.Anything, "ORD-404").Return(nil, shared.ErrNotFound)

	resp, err := svc.GetOrder(ctx, "ORD-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", resp.OrderID)
	assert.Equal(t, "pending", resp.Status)

	_, err = svc.GetOrder(ctx, "ORD-1", "user-2")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.GetOrder(ctx, "ORD-404", "user-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPlacementService_ListUserOrders(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.ListUserOrders(ctx, "")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	repo.On("FindByUser", mock.Anything, "user-1").Return([]*order.Order{
		placedOrder(t, "ORD-2", "user-1"),
		placedOrder(t, "ORD-1", "user-1"),
	}, nil)

	orders, err := svc.ListUserOrders(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD-2", orders[0].OrderID)
}

func TestPlacementService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed transition saves", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := newTestService(repo, nil)
		repo.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(placedOrder(t, "ORD-1", "u"), nil)
		repo.On("Save", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
			return o.Status == order.StatusProcessing
		})).Return(nil)

		resp, err := svc.UpdateStatus(ctx, "ORD-1", "processing")
		require.NoError(t, err)
		assert.Equal(t, "processing", resp.Status)
		repo.AssertExpectations(t)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := newTestService(repo, nil)
		repo.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(placedOrder(t, "ORD-1", "u"), nil)

		_, err := svc.UpdateStatus(ctx, "ORD-1", "pending")
		require.NoError(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("backward transition rejected", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := newTestService(repo, nil)
		o := placedOrder(t, "ORD-1", "u")
		require.NoError(t, o.TransitionTo(order.StatusProcessing))
		require.NoError(t, o.TransitionTo(order.StatusShipped))
		repo.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(o, nil)

		_, err := svc.UpdateStatus(ctx, "ORD-1", "pending")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := newTestService(repo, nil)

		_, err := svc.UpdateStatus(ctx, "ORD-1", "refunded")
		require.Error(t, err)
		repo.AssertNotCalled(t, "FindByOrderNumber", mock.Anything, mock.Anything)
	})
}

func TestPlacementService_MarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order moves to processing", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := newTestService(repo, nil)
		repo.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(placedOrder(t, "ORD-1", "u"), nil)
		repo.On("Save", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
			return o.Status == order.StatusProcessing && o.PaymentIntentID == "pi_1"
		})).Return(nil)

		require.NoError(t, svc.MarkPaid(ctx, "ORD-1", "pi_1"))
		repo.AssertExpectations(t)
	})

	t.Run("already processing does not save", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := newTestService(repo, nil)
		o := placedOrder(t, "ORD-1", "u")
		require.NoError(t, o.MarkPaid("pi_1"))
		repo.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(o, nil)

		require.NoError(t, svc.MarkPaid(ctx, "ORD-1", "pi_1"))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("guest order is not found", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := newTestService(repo, nil)
		repo.On("FindByOrderNumber", mock.Anything, "ORD-9").Return(nil, shared.ErrNotFound)

		assert.ErrorIs(t, svc.MarkPaid(ctx, "ORD-9", "pi_9"), shared.ErrNotFound)
	})
}

func TestNumberGenerator_Monotonic(t *testing.T) {
	g := fixedNumbers(1000)
	assert.Equal(t, "ORD-1000", g.Next())
	assert.Equal(t, "ORD-1001", g.Next())
	assert.Equal(t, "ORD-1002", g.Next())

	g.now = func() time.Time { return time.UnixMilli(5000) }
	assert.Equal(t, "ORD-5000", g.Next())
}
