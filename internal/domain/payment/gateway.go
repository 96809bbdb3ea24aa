// Package payment defines the payment processor port used by checkout and
// the webhook handler.
package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

var (
	ErrInvalidAmount       = errors.New("payment: amount must be a positive number of minor units")
	ErrInvalidOrderID      = errors.New("payment: invalid order ID")
	ErrInvalidCurrency     = errors.New("payment: invalid currency")
	ErrMissingClientSecret = errors.New("payment: gateway returned no client secret")

	ErrGatewayNotConfigured   = errors.New("payment: gateway not configured")
	ErrGatewayUnavailable     = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("payment: gateway request failed")
	ErrGatewayInvalidCallback = errors.New("payment: invalid callback signature")
)

// IntentRequest asks the processor for a payment intent.
// AmountMinor is already in minor units (cents).
type IntentRequest struct {
	AmountMinor  int64
	Currency     valueobject.Currency
	OrderID      string
	ReceiptEmail string
	// IdempotencyKey is forwarded to the processor so repeated requests for
	// the same order and amount reuse the same intent.
	IdempotencyKey string
}

// Validate checks the request before it reaches the processor.
func (r IntentRequest) Validate() error {
	if r.AmountMinor <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.OrderID) == "" {
		return ErrInvalidOrderID
	}
	if _, err := valueobject.ParseCurrency(string(r.Currency)); err != nil {
		return ErrInvalidCurrency
	}
	return nil
}

// IntentResult carries the client secret the hosted payment UI needs.
type IntentResult struct {
	IntentID     string
	ClientSecret string
	Status       string
	AmountMinor  int64
	Currency     valueobject.Currency
}

// IntentGateway creates payment intents with an external processor.
type IntentGateway interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*IntentResult, error)
}

// EventType enumerates the processor notifications the storefront reacts to.
type EventType string

const (
	EventIntentSucceeded EventType = "payment_intent.succeeded"
	EventIntentFailed    EventType = "payment_intent.payment_failed"
	EventIntentCanceled  EventType = "payment_intent.canceled"
)

// Event is a verified processor notification about a payment intent.
type Event struct {
	ID             string
	Type           EventType
	IntentID       string
	OrderID        string
	AmountMinor    int64
	Currency       valueobject.Currency
	FailureMessage string
}

// EventVerifier authenticates a raw webhook payload and decodes it.
// It returns ErrGatewayInvalidCallback when the signature does not match.
type EventVerifier interface {
	VerifyEvent(payload []byte, signature string) (*Event, error)
}
