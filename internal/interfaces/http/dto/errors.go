package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	ErrCodeEmptyOrder = "ERR_VALIDATION_EMPTY_ORDER"
	ErrCodeLineItem   = "ERR_VALIDATION_LINE_ITEM"
	ErrCodeTotal      = "ERR_VALIDATION_TOTAL"
	ErrCodeAddress    = "ERR_VALIDATION_ADDRESS"
	ErrCodeStatus     = "ERR_VALIDATION_STATUS"
	ErrCodeCurrency   = "ERR_VALIDATION_CURRENCY"
	// ErrCodeIdempotencyKey is used when the Idempotency-Key is malformed
	ErrCodeIdempotencyKey = "ERR_VALIDATION_IDEMPOTENCY_KEY"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used when an idempotency key was used for a different request
	ErrCodeConflict = "ERR_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Payment error codes
const (
	// ErrCodePaymentInvalid is used when a payment intent request is malformed
	ErrCodePaymentInvalid = "ERR_PAYMENT_INVALID"
	// ErrCodePaymentUnavailable is used when the processor cannot be reached
	ErrCodePaymentUnavailable = "ERR_PAYMENT_UNAVAILABLE"
	// ErrCodePaymentFailed is used when the processor rejected the request
	ErrCodePaymentFailed = "ERR_PAYMENT_FAILED"
)

// Input error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:     http.StatusBadRequest,
	ErrCodeEmptyOrder:     http.StatusBadRequest,
	ErrCodeLineItem:       http.StatusBadRequest,
	ErrCodeTotal:          http.StatusBadRequest,
	ErrCodeAddress:        http.StatusBadRequest,
	ErrCodeStatus:         http.StatusBadRequest,
	ErrCodeCurrency:       http.StatusBadRequest,
	ErrCodeIdempotencyKey: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	// Payment errors
	ErrCodePaymentInvalid:     http.StatusBadRequest,
	ErrCodePaymentUnavailable: http.StatusServiceUnavailable,
	ErrCodePaymentFailed:      http.StatusBadGateway,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":      ErrCodeNotFound,
	"ALREADY_EXISTS": ErrCodeAlreadyExists,
	"CONFLICT":       ErrCodeConflict,
	"INVALID_INPUT":  ErrCodeInvalidInput,
	"INVALID_STATE":  ErrCodeInvalidState,
	"UNAUTHORIZED":   ErrCodeUnauthorized,
	"FORBIDDEN":      ErrCodeForbidden,

	"EMPTY_ORDER":              ErrCodeEmptyOrder,
	"INVALID_LINE_ITEM":        ErrCodeLineItem,
	"DUPLICATE_LINE_ITEM":      ErrCodeLineItem,
	"INVALID_PRODUCT":          ErrCodeLineItem,
	"INVALID_PRODUCT_NAME":     ErrCodeLineItem,
	"INVALID_QUANTITY":         ErrCodeLineItem,
	"INVALID_PRICE":            ErrCodeLineItem,
	"INVALID_TOTAL":            ErrCodeTotal,
	"TOTAL_MISMATCH":           ErrCodeTotal,
	"INVALID_STATUS":           ErrCodeStatus,
	"INVALID_CURRENCY":         ErrCodeCurrency,
	"INVALID_SHIPPING_ADDRESS": ErrCodeAddress,
	"INVALID_BILLING_ADDRESS":  ErrCodeAddress,
	"INVALID_IDEMPOTENCY_KEY":  ErrCodeIdempotencyKey,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
