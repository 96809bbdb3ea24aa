package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/payment"
)

// StripeAdapter creates payment intents through the Stripe API.
type StripeAdapter struct {
	config *StripeConfig
	client *paymentintent.Client
	logger *zap.Logger
}

var _ payment.IntentGateway = (*StripeAdapter)(nil)

// StripeAdapterOption configures a StripeAdapter
type StripeAdapterOption func(*StripeAdapter)

// WithBackend routes API calls through b instead of the default Stripe backend
func WithBackend(b stripe.Backend) StripeAdapterOption {
	return func(a *StripeAdapter) {
		a.client.B = b
	}
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger, opts ...StripeAdapterOption) (*StripeAdapter, error) {
	if config == nil {
		return nil, payment.ErrGatewayNotConfigured
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &StripeAdapter{
		config: config,
		client: &paymentintent.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: config.SecretKey,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// CreatePaymentIntent creates a Stripe PaymentIntent for an order. The order
// number is stored in the intent metadata under order_id so webhook events
// can be matched back to the order.
func (a *StripeAdapter) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.IntentResult, error) {
	if req.Currency == "" {
		req.Currency = valueobjectCurrency(a.config.DefaultCurrency)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(req.Currency.Lower()),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", req.OrderID)
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	a.logger.Debug("Creating Stripe payment intent",
		zap.String("order_id", req.OrderID),
		zap.Int64("amount_minor", req.AmountMinor),
		zap.String("currency", req.Currency.Lower()))

	pi, err := a.client.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe payment intent",
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		return nil, mapStripeError(err)
	}
	if pi.ClientSecret == "" {
		return nil, payment.ErrMissingClientSecret
	}

	a.logger.Info("Created Stripe payment intent",
		zap.String("order_id", req.OrderID),
		zap.String("payment_intent_id", pi.ID))

	return &payment.IntentResult{
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     valueobjectCurrency(string(pi.Currency)),
	}, nil
}

// mapStripeError classifies Stripe failures: server-side and rate limit
// errors are retryable, everything else is a rejected request.
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	switch {
	case stripeErr.HTTPStatusCode >= http.StatusInternalServerError,
		stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
		stripeErr.Type == stripe.ErrorTypeAPI:
		return fmt.Errorf("%w: %s", payment.ErrGatewayUnavailable, stripeErr.Msg)
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest && stripeErr.Param == "amount":
		return fmt.Errorf("%w: %s", payment.ErrInvalidAmount, stripeErr.Msg)
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest && stripeErr.Param == "currency":
		return fmt.Errorf("%w: %s", payment.ErrInvalidCurrency, stripeErr.Msg)
	default:
		return fmt.Errorf("%w: %s", payment.ErrGatewayRequestFailed, stripeErr.Msg)
	}
}
