package storefront

// Wire format of the storefront API. The server side lives in the HTTP
// interface layer; these mirror it so the client does not depend on it.

const idempotencyKeyHeader = "Idempotency-Key"

// Error codes that map to domain sentinels in APIError.Unwrap.
const (
	codeValidationPrefix   = "ERR_VALIDATION"
	codePaymentInvalid     = "ERR_PAYMENT_INVALID"
	codePaymentUnavailable = "ERR_PAYMENT_UNAVAILABLE"
	codePaymentFailed      = "ERR_PAYMENT_FAILED"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type paymentIntentRequest struct {
	AmountMinor  int64  `json:"amount_minor"`
	OrderID      string `json:"order_id"`
	Currency     string `json:"currency,omitempty"`
	ReceiptEmail string `json:"receipt_email,omitempty"`
}

type paymentIntentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}
