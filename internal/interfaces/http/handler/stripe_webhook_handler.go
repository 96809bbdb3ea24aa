package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	billingapp "github.com/storefront/backend/internal/application/billing"
	"github.com/storefront/backend/internal/domain/payment"
)

// Maximum webhook payload size. Payment intent events are a few KB.
const maxWebhookPayloadSize = 65536

// StripeWebhookHandler receives payment processor events.
// The endpoint is authenticated by the payload signature, not by a token.
type StripeWebhookHandler struct {
	BaseHandler
	webhookService *billingapp.StripeWebhookService
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler
func NewStripeWebhookHandler(webhookService *billingapp.StripeWebhookService) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		webhookService: webhookService,
	}
}

// StripeWebhookResponse represents the response for Stripe webhook
type StripeWebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandleStripeWebhook verifies and applies one event.
//
//	POST /api/v1/webhooks/stripe
func (h *StripeWebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, StripeWebhookResponse{Message: "Failed to read request body"})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, StripeWebhookResponse{Message: "Payload too large"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusUnauthorized, StripeWebhookResponse{Message: "Missing Stripe-Signature header"})
		return
	}

	result, err := h.webhookService.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if result == nil {
			if errors.Is(err, payment.ErrGatewayNotConfigured) {
				c.JSON(http.StatusServiceUnavailable, StripeWebhookResponse{Message: "Webhooks are not configured"})
				return
			}
			c.JSON(http.StatusUnauthorized, StripeWebhookResponse{Message: "Webhook signature verification failed"})
			return
		}

		// A 5xx makes the processor redeliver, which is what we want when
		// the order could not be updated.
		c.JSON(http.StatusInternalServerError, StripeWebhookResponse{
			EventID:   result.EventID,
			EventType: result.EventType,
			Message:   "Webhook received but processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, StripeWebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Message:   result.Message,
	})
}
