package billing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/payment"
)

// MockIntentGateway is a mock implementation of payment.IntentGateway
type MockIntentGateway struct {
	mock.Mock
}

func (m *MockIntentGateway) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.IntentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.IntentResult), args.Error(1)
}

// MockOrderReader is a mock implementation of OrderReader
type MockOrderReader struct {
	mock.Mock
}

func (m *MockOrderReader) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

// MockEventVerifier is a mock implementation of payment.EventVerifier
type MockEventVerifier struct {
	mock.Mock
}

func (m *MockEventVerifier) VerifyEvent(payload []byte, signature string) (*payment.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

// MockOrderPayments is a mock implementation of OrderPayments
type MockOrderPayments struct {
	mock.Mock
}

func (m *MockOrderPayments) MarkPaid(ctx context.Context, orderNumber, paymentIntentID string) error {
	args := m.Called(ctx, orderNumber, paymentIntentID)
	return args.Error(0)
}
