package handler

import (
	"github.com/gin-gonic/gin"

	billingapp "github.com/storefront/backend/internal/application/billing"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// PaymentIntentHandler creates payment intents for the hosted payment form
type PaymentIntentHandler struct {
	BaseHandler
	intents *billingapp.IntentService
}

// NewPaymentIntentHandler creates a new PaymentIntentHandler
func NewPaymentIntentHandler(intents *billingapp.IntentService) *PaymentIntentHandler {
	return &PaymentIntentHandler{intents: intents}
}

// CreatePaymentIntent returns the client secret for a new payment intent.
// The Idempotency-Key header is forwarded to the processor.
//
//	POST /api/v1/payment-intents
func (h *PaymentIntentHandler) CreatePaymentIntent(c *gin.Context) {
	var req dto.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	result, err := h.intents.CreateIntent(c.Request.Context(), billingapp.CreateIntentInput{
		AmountMinor:    req.AmountMinor,
		OrderID:        req.OrderID,
		Currency:       req.Currency,
		ReceiptEmail:   req.ReceiptEmail,
		IdempotencyKey: c.GetHeader(dto.IdempotencyKeyHeader),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.PaymentIntentResponse{
		ClientSecret:    result.ClientSecret,
		PaymentIntentID: result.IntentID,
	})
}
