package dto

// CreatePaymentIntentRequest asks for a payment intent for a placed order.
// AmountMinor is in minor units (cents).
type CreatePaymentIntentRequest struct {
	AmountMinor  int64  `json:"amount_minor" binding:"required,gt=0"`
	OrderID      string `json:"order_id" binding:"required,max=64"`
	Currency     string `json:"currency" binding:"omitempty,len=3"`
	ReceiptEmail string `json:"receipt_email" binding:"omitempty,email"`
}

// PaymentIntentResponse carries the client secret for the hosted payment form
type PaymentIntentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}

// UpdateOrderStatusRequest changes an order's status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
}

// IdempotencyKeyHeader carries the client's idempotency key for order placement
const IdempotencyKeyHeader = "Idempotency-Key"
