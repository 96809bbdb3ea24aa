package storefront

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
)

// APIError is a non-success answer from the storefront API.
// errors.Is matches it against the domain sentinel for its status and code,
// so callers can handle remote and in-process failures the same way.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	e := &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-ID"),
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		e.Code = env.Error.Code
		e.Message = env.Error.Message
		if env.Error.RequestID != "" {
			e.RequestID = env.Error.RequestID
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("storefront: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("storefront: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap returns the sentinel matching the response, or nil.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == codePaymentInvalid:
		return payment.ErrInvalidAmount
	case e.Code == codePaymentUnavailable:
		return payment.ErrGatewayUnavailable
	case e.Code == codePaymentFailed:
		return payment.ErrGatewayRequestFailed
	case strings.HasPrefix(e.Code, codeValidationPrefix):
		return shared.ErrInvalidInput
	}

	switch e.StatusCode {
	case http.StatusBadRequest:
		return shared.ErrInvalidInput
	case http.StatusUnauthorized:
		return shared.ErrUnauthorized
	case http.StatusForbidden:
		return shared.ErrForbidden
	case http.StatusNotFound:
		return shared.ErrNotFound
	case http.StatusConflict:
		return shared.ErrConflict
	case http.StatusUnprocessableEntity:
		return shared.ErrInvalidState
	}
	return nil
}

// Temporary reports whether retrying the same request later may succeed.
func (e *APIError) Temporary() bool {
	return retryable(e.StatusCode)
}
