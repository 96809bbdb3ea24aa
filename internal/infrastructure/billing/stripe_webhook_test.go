package billing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

const testWebhookSecret = "whsec_test_123456789"

func signedEvent(t *testing.T, eventType, object string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"api_version": %q,
		"type": %q,
		"data": {"object": %s}
	}`, stripe.APIVersion, eventType, object))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testWebhookSecret,
	})
	return signed.Payload, signed.Header
}

func TestNewStripeEventVerifier_RequiresSecret(t *testing.T) {
	_, err := NewStripeEventVerifier("")
	assert.ErrorIs(t, err, payment.ErrGatewayNotConfigured)
}

func TestStripeEventVerifier_Succeeded(t *testing.T) {
	v, err := NewStripeEventVerifier(testWebhookSecret)
	require.NoError(t, err)

	payload, header := signedEvent(t, "payment_intent.succeeded", `{
		"id": "pi_123",
		"object": "payment_intent",
		"amount": 2500,
		"currency": "cad",
		"metadata": {"order_id": "ORD-1"}
	}`)

	event, err := v.VerifyEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, payment.EventIntentSucceeded, event.Type)
	assert.Equal(t, "pi_123", event.IntentID)
	assert.Equal(t, "ORD-1", event.OrderID)
	assert.Equal(t, int64(2500), event.AmountMinor)
	assert.Equal(t, valueobject.CAD, event.Currency)
}

func TestStripeEventVerifier_Failed(t *testing.T) {
	v, err := NewStripeEventVerifier(testWebhookSecret)
	require.NoError(t, err)

	payload, header := signedEvent(t, "payment_intent.payment_failed", `{
		"id": "pi_9",
		"object": "payment_intent",
		"amount": 100,
		"currency": "usd",
		"metadata": {"order_id": "ORD-9"},
		"last_payment_error": {"message": "Your card was declined."}
	}`)

	event, err := v.VerifyEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, payment.EventIntentFailed, event.Type)
	assert.Equal(t, "Your card was declined.", event.FailureMessage)
}

func TestStripeEventVerifier_OtherEvent(t *testing.T) {
	v, err := NewStripeEventVerifier(testWebhookSecret)
	require.NoError(t, err)

	payload, header := signedEvent(t, "charge.refunded", `{"id": "ch_1", "object": "charge"}`)

	event, err := v.VerifyEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, payment.EventType("charge.refunded"), event.Type)
	assert.Empty(t, event.OrderID)
}

func TestStripeEventVerifier_BadSignature(t *testing.T) {
	v, err := NewStripeEventVerifier("whsec_other")
	require.NoError(t, err)

	payload, header := signedEvent(t, "payment_intent.succeeded", `{"id": "pi_1"}`)

	_, err = v.VerifyEvent(payload, header)
	assert.ErrorIs(t, err, payment.ErrGatewayInvalidCallback)

	_, err = v.VerifyEvent(payload, "")
	assert.ErrorIs(t, err, payment.ErrGatewayInvalidCallback)
}
