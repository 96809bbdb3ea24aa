package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

func testAddress(first string) valueobject.Address {
	return valueobject.Address{
		FirstName: first,
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

func newTestOrder(t *testing.T, number, userID, key string) *order.Order {
	t.Helper()
	o, err := order.NewOrder(number, userID, order.PlaceOrderRequest{
		Total:  decimal.RequireFromString("35.50"),
		Status: order.StatusPending,
		Items: []order.LineItem{
			{ProductID: "p2", ProductName: "Tea", Quantity: 1, UnitPrice: decimal.RequireFromString("10.50")},
			{ProductID: "p1", ProductName: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		},
		Shipping:       testAddress("Ada"),
		Billing:        testAddress("Bob"),
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	return o
}

func TestGormOrderRepository_SaveAndFind(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()

	o := newTestOrder(t, "ORD-1", "user-1", "key-1")
	require.NoError(t, repo.Save(ctx, o))

	found, err := repo.FindByOrderNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)
	assert.Equal(t, "user-1", found.UserID)
	assert.Equal(t, order.StatusPending, found.Status)
	assert.True(t, found.Total.Amount().Equal(decimal.RequireFromString("35.50")))
	assert.Equal(t, valueobject.CAD, found.Total.Currency())
	assert.Equal(t, "Ada", found.Shipping.FirstName)
	assert.Equal(t, "Bob", found.Billing.FirstName)
	assert.False(t, found.SameAsShipping)
	assert.Equal(t, "key-1", found.IdempotencyKey)

	require.Len(t, found.Items, 2)
	assert.Equal(t, "p2", found.Items[0].ProductID, "line order is preserved")
	assert.Equal(t, 2, found.Items[1].Quantity)
	assert.True(t, found.Items[1].UnitPrice.Equal(decimal.RequireFromString("12.50")))

	byKey, err := repo.FindByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", byKey.OrderNumber)
}

func TestGormOrderRepository_SameAsShipping(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()

	for _, same := range []bool{false, true} {
		number := "ORD-separate"
		if same {
			number = "ORD-same"
		}
		o := newTestOrder(t, number, "user-1", "")
		o.SameAsShipping = same
		require.NoError(t, repo.Save(ctx, o))

		found, err := repo.FindByOrderNumber(ctx, number)
		require.NoError(t, err)
		assert.Equal(t, same, found.SameAsShipping, number)
	}
}

func TestGormOrderRepository_NotFound(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.FindByOrderNumber(ctx, "ORD-404")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindByIdempotencyKey(ctx, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_UpdateStatus(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()

	o := newTestOrder(t, "ORD-1", "user-1", "")
	require.NoError(t, repo.Save(ctx, o))

	require.NoError(t, o.MarkPaid("pi_123"))
	require.NoError(t, repo.Save(ctx, o))

	found, err := repo.FindByOrderNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, found.Status)
	assert.Equal(t, "pi_123", found.PaymentIntentID)
	assert.Len(t, found.Items, 2, "updating status must not duplicate lines")
}

func TestGormOrderRepository_DuplicateOrderNumber(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newTestOrder(t, "ORD-1", "user-1", "")))
	err := repo.Save(ctx, newTestOrder(t, "ORD-1", "user-2", ""))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGormOrderRepository_FindByUser(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, number := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		o := newTestOrder(t, number, "user-1", "")
		o.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		o.UpdatedAt = o.CreatedAt
		require.NoError(t, repo.Save(ctx, o))
	}
	require.NoError(t, repo.Save(ctx, newTestOrder(t, "ORD-9", "user-2", "")))

	orders, err := repo.FindByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "ORD-3", orders[0].OrderNumber)
	assert.Equal(t, "ORD-1", orders[2].OrderNumber)
	assert.Len(t, orders[0].Items, 2)

	none, err := repo.FindByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
