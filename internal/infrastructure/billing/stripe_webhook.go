package billing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// StripeEventVerifier checks Stripe-Signature headers and decodes
// payment_intent events.
type StripeEventVerifier struct {
	secret string
}

var _ payment.EventVerifier = (*StripeEventVerifier)(nil)

// NewStripeEventVerifier creates a verifier for the given webhook secret
func NewStripeEventVerifier(webhookSecret string) (*StripeEventVerifier, error) {
	if webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret is required", payment.ErrGatewayNotConfigured)
	}
	return &StripeEventVerifier{secret: webhookSecret}, nil
}

// VerifyEvent authenticates payload against signature. Events that are not
// about a payment intent are returned with only ID and Type set.
func (v *StripeEventVerifier) VerifyEvent(payload []byte, signature string) (*payment.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidCallback, err)
	}

	out := &payment.Event{
		ID:   event.ID,
		Type: payment.EventType(event.Type),
	}
	if !strings.HasPrefix(string(event.Type), "payment_intent.") || event.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}
	out.IntentID = pi.ID
	out.OrderID = pi.Metadata["order_id"]
	out.AmountMinor = pi.Amount
	out.Currency = valueobjectCurrency(string(pi.Currency))
	if pi.LastPaymentError != nil {
		out.FailureMessage = pi.LastPaymentError.Msg
	}
	return out, nil
}

// valueobjectCurrency maps Stripe's lowercase codes onto Currency, keeping
// unknown codes uppercased so they surface in validation errors.
func valueobjectCurrency(code string) valueobject.Currency {
	if c, err := valueobject.ParseCurrency(code); err == nil {
		return c
	}
	return valueobject.Currency(strings.ToUpper(code))
}
