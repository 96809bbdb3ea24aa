// Package billing creates payment intents for placed orders and applies
// payment processor notifications to them.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// OrderReader looks up persisted orders. Guest orders are never stored, so
// lookups for them return shared.ErrNotFound.
type OrderReader interface {
	FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error)
}

// IntentService creates payment intents for orders
type IntentService struct {
	gateway  payment.IntentGateway
	orders   OrderReader
	currency valueobject.Currency
	logger   *zap.Logger
}

// IntentServiceConfig contains dependencies for IntentService
type IntentServiceConfig struct {
	Gateway payment.IntentGateway
	// Orders is optional. When set, intents for stored orders must match the
	// order total.
	Orders   OrderReader
	Currency valueobject.Currency
	Logger   *zap.Logger
}

// NewIntentService creates a new IntentService
func NewIntentService(cfg IntentServiceConfig) *IntentService {
	s := &IntentService{
		gateway:  cfg.Gateway,
		orders:   cfg.Orders,
		currency: cfg.Currency,
		logger:   cfg.Logger,
	}
	if s.currency == "" {
		s.currency = valueobject.DefaultCurrency
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// CreateIntentInput is a request for a payment intent
type CreateIntentInput struct {
	AmountMinor    int64
	OrderID        string
	Currency       string
	ReceiptEmail   string
	IdempotencyKey string
}

// CreateIntent validates in and asks the gateway for a payment intent.
func (s *IntentService) CreateIntent(ctx context.Context, in CreateIntentInput) (result *payment.IntentResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create_intent")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, strings.TrimSpace(in.OrderID),
		telemetry.SpanAttrAmountMinor, in.AmountMinor)

	if s.gateway == nil {
		return nil, payment.ErrGatewayNotConfigured
	}

	currency := s.currency
	if strings.TrimSpace(in.Currency) != "" {
		c, err := valueobject.ParseCurrency(in.Currency)
		if err != nil {
			return nil, payment.ErrInvalidCurrency
		}
		currency = c
	}

	req := payment.IntentRequest{
		AmountMinor:    in.AmountMinor,
		Currency:       currency,
		OrderID:        strings.TrimSpace(in.OrderID),
		ReceiptEmail:   in.ReceiptEmail,
		IdempotencyKey: in.IdempotencyKey,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAgainstOrder(ctx, req); err != nil {
		return nil, err
	}

	result, err = s.gateway.CreatePaymentIntent(ctx, req)
	if err != nil {
		return nil, err
	}
	if result == nil || result.ClientSecret == "" {
		return nil, payment.ErrMissingClientSecret
	}

	s.logger.Info("Payment intent created",
		zap.String("order_id", req.OrderID),
		zap.String("payment_intent_id", result.IntentID),
		zap.Int64("amount_minor", req.AmountMinor))
	return result, nil
}

func (s *IntentService) checkAgainstOrder(ctx context.Context, req payment.IntentRequest) error {
	if s.orders == nil {
		return nil
	}
	o, err := s.orders.FindByOrderNumber(ctx, req.OrderID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up order: %w", err)
	}
	if o.Status == order.StatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Order is cancelled")
	}
	if expected := o.Total.MinorUnits(); expected != req.AmountMinor {
		return fmt.Errorf("%w: order %s expects %d", payment.ErrInvalidAmount, req.OrderID, expected)
	}
	return nil
}
