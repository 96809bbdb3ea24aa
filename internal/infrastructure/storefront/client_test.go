package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

func newTestClient(t *testing.T, h http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:       srv.URL + "/",
		Token:         token,
		RetryInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Error: &errorBody{Code: code, Message: message, RequestID: "req-1"}})
}

func sampleOrder() order.PlaceOrderRequest {
	addr := valueobject.Address{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "555-0100",
		Address: "1 Main St", City: "Toronto", State: "ON", ZipCode: "M5V 1A1", Country: "Canada",
	}
	return order.PlaceOrderRequest{
		Total:  decimal.RequireFromString("25.00"),
		Status: order.StatusPending,
		Items: []order.LineItem{
			{ProductID: "p-1", ProductName: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		},
		Shipping:       addr,
		Billing:        addr,
		SameAsShipping: true,
		IdempotencyKey: "key-1",
	}
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	c, err := NewClient(Config{BaseURL: "http://localhost:8080"})
	require.NoError(t, err)
	assert.Equal(t, uint(defaultMaxTries), c.maxTries)
	assert.Equal(t, defaultTimeout, c.http.Timeout)
}

func TestClient_PlaceOrder(t *testing.T) {
	var got order.PlaceOrderRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ordersPath, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "key-1", r.Header.Get(idempotencyKeyHeader))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, envelope{Success: true, Data: order.PlaceOrderResult{OrderID: "ORD-42"}})
	}, "tok")

	result, err := c.PlaceOrder(context.Background(), sampleOrder(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-42", result.OrderID)
	assert.False(t, result.Replayed)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("25")))
	assert.Equal(t, "key-1", got.IdempotencyKey)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p-1", got.Items[0].ProductID)
}

func TestClient_PlaceOrder_GuestSendsNoToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: order.PlaceOrderResult{OrderID: "ORD-7", Replayed: true}})
	}, "")

	result, err := c.PlaceOrder(context.Background(), sampleOrder(), "")
	require.NoError(t, err)
	assert.Equal(t, "ORD-7", result.OrderID)
	assert.True(t, result.Replayed)
}

func TestClient_PlaceOrder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   error
	}{
		{"validation", http.StatusBadRequest, "ERR_VALIDATION_TOTAL", shared.ErrInvalidInput},
		{"unauthorized", http.StatusUnauthorized, "ERR_TOKEN_INVALID", shared.ErrUnauthorized},
		{"conflict", http.StatusConflict, "ERR_CONFLICT", shared.ErrConflict},
		{"not found", http.StatusNotFound, "ERR_NOT_FOUND", shared.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeError(w, tt.status, tt.code, "nope")
			}, "")

			_, err := c.PlaceOrder(context.Background(), sampleOrder(), "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, "req-1", apiErr.RequestID)
			assert.Equal(t, int32(1), calls.Load(), "client errors are not retried")
		})
	}
}

func TestClient_PlaceOrder_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeError(w, http.StatusServiceUnavailable, "ERR_INTERNAL", "busy")
			return
		}
		assert.Equal(t, "key-1", r.Header.Get(idempotencyKeyHeader))
		writeJSON(w, http.StatusCreated, envelope{Success: true, Data: order.PlaceOrderResult{OrderID: "ORD-9"}})
	}, "")

	result, err := c.PlaceOrder(context.Background(), sampleOrder(), "")
	require.NoError(t, err)
	assert.Equal(t, "ORD-9", result.OrderID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_PlaceOrder_GivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusTooManyRequests, "ERR_RATE_LIMITED", "slow down")
	}, "")

	_, err := c.PlaceOrder(context.Background(), sampleOrder(), "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Temporary())
	assert.Equal(t, int32(defaultMaxTries), calls.Load())
}

func TestClient_PlaceOrder_MissingOrderID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, envelope{Success: true, Data: map[string]string{}})
	}, "")

	_, err := c.PlaceOrder(context.Background(), sampleOrder(), "")
	assert.ErrorContains(t, err, "no order id")
}

func TestClient_CreatePaymentIntent(t *testing.T) {
	var got paymentIntentRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, paymentIntentsPath, r.URL.Path)
		assert.Equal(t, "intent-key", r.Header.Get(idempotencyKeyHeader))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: paymentIntentResponse{
			ClientSecret:    "pi_1_secret_abc",
			PaymentIntentID: "pi_1",
		}})
	}, "")

	result, err := c.CreatePaymentIntent(context.Background(), payment.IntentRequest{
		AmountMinor:    2000,
		Currency:       valueobject.CAD,
		OrderID:        "ORD-1",
		IdempotencyKey: "intent-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret_abc", result.ClientSecret)
	assert.Equal(t, "pi_1", result.IntentID)
	assert.Equal(t, int64(2000), result.AmountMinor)
	assert.Equal(t, int64(2000), got.AmountMinor)
	assert.Equal(t, "ORD-1", got.OrderID)
	assert.Equal(t, "CAD", got.Currency)
}

func TestClient_CreatePaymentIntent_Errors(t *testing.T) {
	t.Run("invalid request never reaches the API", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		}, "")
		_, err := c.CreatePaymentIntent(context.Background(), payment.IntentRequest{Currency: valueobject.CAD, OrderID: "ORD-1"})
		assert.ErrorIs(t, err, payment.ErrInvalidAmount)
	})

	t.Run("empty client secret", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, envelope{Success: true, Data: paymentIntentResponse{}})
		}, "")
		_, err := c.CreatePaymentIntent(context.Background(), payment.IntentRequest{AmountMinor: 100, Currency: valueobject.CAD, OrderID: "ORD-1"})
		assert.ErrorIs(t, err, payment.ErrMissingClientSecret)
	})

	codes := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusBadRequest, codePaymentInvalid, payment.ErrInvalidAmount},
		{http.StatusServiceUnavailable, codePaymentUnavailable, payment.ErrGatewayUnavailable},
		{http.StatusBadGateway, codePaymentFailed, payment.ErrGatewayRequestFailed},
	}
	for _, tt := range codes {
		t.Run(tt.code, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tt.status, tt.code, "payment problem")
			}, "")
			_, err := c.CreatePaymentIntent(context.Background(), payment.IntentRequest{AmountMinor: 100, Currency: valueobject.CAD, OrderID: "ORD-1"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusServiceUnavailable, "ERR_INTERNAL", "busy")
	}, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.PlaceOrder(ctx, sampleOrder(), "")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{StatusCode: 500, Message: "Internal Server Error"}
	assert.Equal(t, "storefront: 500 Internal Server Error", err.Error())
	assert.Nil(t, err.Unwrap())

	err = &APIError{StatusCode: 400, Code: "ERR_VALIDATION_EMPTY_ORDER", Message: "empty"}
	assert.Equal(t, "storefront: 400 ERR_VALIDATION_EMPTY_ORDER: empty", err.Error())
}
