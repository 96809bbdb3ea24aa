package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

func storedOrder(t *testing.T, total string) *order.Order {
	t.Helper()
	addr := valueobject.Address{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "555-0100",
		Address: "1 Main St", City: "Toronto", State: "ON", ZipCode: "M5V 1A1", Country: "Canada",
	}
	o, err := order.NewOrder("ORD-1", "user-1", order.PlaceOrderRequest{
		Total:    decimal.RequireFromString(total),
		Items:    []order.LineItem{{ProductID: "p1", ProductName: "Mug", Quantity: 1, UnitPrice: decimal.RequireFromString(total)}},
		Shipping: addr,
		Billing:  addr,
	})
	require.NoError(t, err)
	return o
}

func TestIntentService_CreateIntent(t *testing.T) {
	gateway := new(MockIntentGateway)
	svc := NewIntentService(IntentServiceConfig{Gateway: gateway})
	ctx := context.Background()

	gateway.On("CreatePaymentIntent", mock.Anything, payment.IntentRequest{
		AmountMinor:    2500,
		Currency:       valueobject.CAD,
		OrderID:        "ORD-1",
		IdempotencyKey: "k",
	}).Return(&payment.IntentResult{IntentID: "pi_1", ClientSecret: "secret"}, nil)

	result, err := svc.CreateIntent(ctx, CreateIntentInput{AmountMinor: 2500, OrderID: " ORD-1 ", IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "secret", result.ClientSecret)
	gateway.AssertExpectations(t)
}

func TestIntentService_CreateIntent_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateIntentInput
		want error
	}{
		{"zero amount", CreateIntentInput{AmountMinor: 0, OrderID: "ORD-1"}, payment.ErrInvalidAmount},
		{"negative amount", CreateIntentInput{AmountMinor: -5, OrderID: "ORD-1"}, payment.ErrInvalidAmount},
		{"missing order", CreateIntentInput{AmountMinor: 100}, payment.ErrInvalidOrderID},
		{"bad currency", CreateIntentInput{AmountMinor: 100, OrderID: "ORD-1", Currency: "XYZ"}, payment.ErrInvalidCurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := new(MockIntentGateway)
			svc := NewIntentService(IntentServiceConfig{Gateway: gateway})

			_, err := svc.CreateIntent(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
			gateway.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
		})
	}
}

func TestIntentService_CreateIntent_NoGateway(t *testing.T) {
	svc := NewIntentService(IntentServiceConfig{})
	_, err := svc.CreateIntent(context.Background(), CreateIntentInput{AmountMinor: 100, OrderID: "ORD-1"})
	assert.ErrorIs(t, err, payment.ErrGatewayNotConfigured)
}

func TestIntentService_CreateIntent_GatewayFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("gateway error passes through", func(t *testing.T) {
		gateway := new(MockIntentGateway)
		gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(nil, payment.ErrGatewayUnavailable)
		svc := NewIntentService(IntentServiceConfig{Gateway: gateway})

		_, err := svc.CreateIntent(ctx, CreateIntentInput{AmountMinor: 100, OrderID: "ORD-1"})
		assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	})

	t.Run("empty secret", func(t *testing.T) {
		gateway := new(MockIntentGateway)
		gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(&payment.IntentResult{IntentID: "pi_1"}, nil)
		svc := NewIntentService(IntentServiceConfig{Gateway: gateway})

		_, err := svc.CreateIntent(ctx, CreateIntentInput{AmountMinor: 100, OrderID: "ORD-1"})
		assert.ErrorIs(t, err, payment.ErrMissingClientSecret)
	})
}

func TestIntentService_CreateIntent_ChecksStoredOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("amount must match stored order", func(t *testing.T) {
		gateway := new(MockIntentGateway)
		orders := new(MockOrderReader)
		orders.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(storedOrder(t, "19.999"), nil)
		svc := NewIntentService(IntentServiceConfig{Gateway: gateway, Orders: orders})

		_, err := svc.CreateIntent(ctx, CreateIntentInput{AmountMinor: 1999, OrderID: "ORD-1"})
		assert.ErrorIs(t, err, payment.ErrInvalidAmount)
		gateway.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
	})

	t.Run("matching amount is accepted", func(t *testing.T) {
		gateway := new(MockIntentGateway)
		gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(&payment.IntentResult{ClientSecret: "s"}, nil)
		orders := new(MockOrderReader)
		orders.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(storedOrder(t, "19.999"), nil)
		svc := NewIntentService(IntentServiceConfig{Gateway: gateway, Orders: orders})

		_, err := svc.CreateIntent(ctx, CreateIntentInput{AmountMinor: 2000, OrderID: "ORD-1"})
		require.NoError(t, err)
	})

	t.Run("guest orders are not checked", func(t *testing.T) {
		gateway := new(MockIntentGateway)
		gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(&payment.IntentResult{ClientSecret: "s"}, nil)
		orders := new(MockOrderReader)
		orders.On("FindByOrderNumber", mock.Anything, "ORD-2").Return(nil, shared.ErrNotFound)
		svc := NewIntentService(IntentServiceConfig{Gateway: gateway, Orders: orders})

		_, err := svc.CreateIntent(ctx, CreateIntentInput{AmountMinor: 123, OrderID: "ORD-2"})
		require.NoError(t, err)
	})

	t.Run("cancelled order rejected", func(t *testing.T) {
		gateway := new(MockIntentGateway)
		orders := new(MockOrderReader)
		o := storedOrder(t, "10.00")
		require.NoError(t, o.TransitionTo(order.StatusCancelled))
		orders.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(o, nil)
		svc := NewIntentService(IntentServiceConfig{Gateway: gateway, Orders: orders})

		_, err := svc.CreateIntent(ctx, CreateIntentInput{AmountMinor: 1000, OrderID: "ORD-1"})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("lookup failure", func(t *testing.T) {
		orders := new(MockOrderReader)
		orders.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(nil, errors.New("db down"))
		svc := NewIntentService(IntentServiceConfig{Gateway: new(MockIntentGateway), Orders: orders})

		_, err := svc.CreateIntent(ctx, CreateIntentInput{AmountMinor: 1000, OrderID: "ORD-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to look up order")
	})
}
