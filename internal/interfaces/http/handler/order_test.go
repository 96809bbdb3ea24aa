package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

var testJWT = auth.NewJWTService(config.JWTConfig{
	Secret:                "test-secret-key-at-least-32-chars",
	Issuer:                "test-issuer",
	AccessTokenExpiration: 15 * time.Minute,
})

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, _, err := testJWT.IssueAccessToken(auth.IssueTokenInput{UserID: userID, Role: role})
	require.NoError(t, err)
	return middleware.BearerPrefix + token
}

func testAddress() valueobject.Address {
	return valueobject.Address{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "555-0100",
		Address:   "1 Main St",
		City:      "Toronto",
		State:     "ON",
		ZipCode:   "M5V 1A1",
		Country:   "Canada",
	}
}

func testPlaceOrderRequest() order.PlaceOrderRequest {
	return order.PlaceOrderRequest{
		Total:  decimal.RequireFromString("40.00"),
		Status: order.StatusPending,
		Items: []order.LineItem{
			{ProductID: "p1", ProductName: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("15.00")},
			{ProductID: "p2", ProductName: "Tea", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
		Shipping:       testAddress(),
		Billing:        testAddress(),
		SameAsShipping: true,
	}
}

func storedOrder(t *testing.T, number, userID string) *order.Order {
	t.Helper()
	o, err := order.NewOrder(number, userID, testPlaceOrderRequest())
	require.NoError(t, err)
	return o
}

func newOrderRouter(repo *MockOrderRepository) *gin.Engine {
	placement := orderapp.NewPlacementService(orderapp.PlacementServiceConfig{
		Repo:        repo,
		Idempotency: cache.NewInMemoryIdempotencyStore(),
	})
	h := NewOrderHandler(placement)

	router := gin.New()
	router.Use(middleware.RequestID())
	api := router.Group("/api/v1")
	api.POST("/orders", middleware.OptionalAuth(testJWT, nil), h.PlaceOrder)

	authed := api.Group("", middleware.RequireAuth(testJWT, nil))
	authed.GET("/orders/mine", h.ListMyOrders)
	authed.GET("/orders/:id", h.GetOrder)
	authed.PATCH("/admin/orders/:id/status", middleware.RequireAdmin(), h.UpdateStatus)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodePlaceResult(t *testing.T, w *httptest.ResponseRecorder) order.PlaceOrderResult {
	t.Helper()
	var resp struct {
		Success bool                   `json:"success"`
		Data    order.PlaceOrderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func TestOrderHandler_PlaceOrder_Guest(t *testing.T) {
	repo := new(MockOrderRepository)
	router := newOrderRouter(repo)

	w := doJSON(router, http.MethodPost, "/api/v1/orders", testPlaceOrderRequest(), nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decodePlaceResult(t, w)
	assert.True(t, strings.HasPrefix(result.OrderID, "ORD-"))
	assert.False(t, result.Replayed)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderHandler_PlaceOrder_SignedIn(t *testing.T) {
	repo := new(MockOrderRepository)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return o.UserID == "user-1" && o.Status == order.StatusPending && o.Total.MinorUnits() == 4000
	})).Return(nil)
	router := newOrderRouter(repo)

	w := doJSON(router, http.MethodPost, "/api/v1/orders", testPlaceOrderRequest(),
		map[string]string{"Authorization": bearer(t, "user-1", "")})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	repo.AssertExpectations(t)
}

func TestOrderHandler_PlaceOrder_IdempotencyHeader(t *testing.T) {
	repo := new(MockOrderRepository)
	router := newOrderRouter(repo)
	headers := map[string]string{dto.IdempotencyKeyHeader: "checkout-123"}

	first := doJSON(router, http.MethodPost, "/api/v1/orders", testPlaceOrderRequest(), headers)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(router, http.MethodPost, "/api/v1/orders", testPlaceOrderRequest(), headers)
	require.Equal(t, http.StatusOK, second.Code)

	a, b := decodePlaceResult(t, first), decodePlaceResult(t, second)
	assert.Equal(t, a.OrderID, b.OrderID)
	assert.True(t, b.Replayed)
}

func TestOrderHandler_PlaceOrder_Rejections(t *testing.T) {
	router := newOrderRouter(new(MockOrderRepository))

	t.Run("key mismatch", func(t *testing.T) {
		req := testPlaceOrderRequest()
		req.IdempotencyKey = "body-key"
		w := doJSON(router, http.MethodPost, "/api/v1/orders", req,
			map[string]string{dto.IdempotencyKeyHeader: "header-key"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeIdempotencyKey, decodeResponse(t, w).Error.Code)
	})

	t.Run("empty order", func(t *testing.T) {
		req := testPlaceOrderRequest()
		req.Items = nil
		w := doJSON(router, http.MethodPost, "/api/v1/orders", req, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeEmptyOrder, decodeResponse(t, w).Error.Code)
	})

	t.Run("total mismatch", func(t *testing.T) {
		req := testPlaceOrderRequest()
		req.Total = decimal.RequireFromString("39.99")
		w := doJSON(router, http.MethodPost, "/api/v1/orders", req, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeTotal, decodeResponse(t, w).Error.Code)
	})

	t.Run("non pending status", func(t *testing.T) {
		req := testPlaceOrderRequest()
		req.Status = order.StatusShipped
		w := doJSON(router, http.MethodPost, "/api/v1/orders", req, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeStatus, decodeResponse(t, w).Error.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/v1/orders", `{"items": [`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeResponse(t, w).Error.Code)
	})
}

func TestOrderHandler_ListMyOrders(t *testing.T) {
	repo := new(MockOrderRepository)
	repo.On("FindByUser", mock.Anything, "user-1").Return([]*order.Order{
		storedOrder(t, "ORD-2", "user-1"),
		storedOrder(t, "ORD-1", "user-1"),
	}, nil)
	router := newOrderRouter(repo)

	t.Run("requires auth", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/v1/orders/mine", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("newest first", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/api/v1/orders/mine", nil,
			map[string]string{"Authorization": bearer(t, "user-1", "")})

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []orderapp.OrderResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "ORD-2", resp.Data[0].OrderID)
		assert.Equal(t, "40", resp.Data[0].Total.String())
	})
}

func TestOrderHandler_GetOrder(t *testing.T) {
	repo := new(MockOrderRepository)
	repo.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(storedOrder(t, "ORD-1", "user-1"), nil)
	repo.On("FindByOrderNumber", mock.Anything, "ORD-404").Return(nil, shared.ErrNotFound)
	router := newOrderRouter(repo)

	tests := []struct {
		name       string
		path       string
		userID     string
		role       string
		wantStatus int
	}{
		{"owner", "/api/v1/orders/ORD-1", "user-1", "", http.StatusOK},
		{"other customer", "/api/v1/orders/ORD-1", "user-2", "", http.StatusNotFound},
		{"admin", "/api/v1/orders/ORD-1", "admin-1", auth.RoleAdmin, http.StatusOK},
		{"missing", "/api/v1/orders/ORD-404", "user-1", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodGet, tt.path, nil,
				map[string]string{"Authorization": bearer(t, tt.userID, tt.role)})
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	t.Run("customer forbidden", func(t *testing.T) {
		router := newOrderRouter(new(MockOrderRepository))
		w := doJSON(router, http.MethodPatch, "/api/v1/admin/orders/ORD-1/status",
			map[string]string{"status": "processing"},
			map[string]string{"Authorization": bearer(t, "user-1", "")})

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("pending to processing", func(t *testing.T) {
		repo := new(MockOrderRepository)
		repo.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(storedOrder(t, "ORD-1", "user-1"), nil)
		repo.On("Save", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
			return o.Status == order.StatusProcessing
		})).Return(nil)
		router := newOrderRouter(repo)

		w := doJSON(router, http.MethodPatch, "/api/v1/admin/orders/ORD-1/status",
			map[string]string{"status": "processing"},
			map[string]string{"Authorization": bearer(t, "admin-1", auth.RoleAdmin)})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		repo.AssertExpectations(t)
	})

	t.Run("disallowed transition", func(t *testing.T) {
		repo := new(MockOrderRepository)
		repo.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(storedOrder(t, "ORD-1", "user-1"), nil)
		router := newOrderRouter(repo)

		w := doJSON(router, http.MethodPatch, "/api/v1/admin/orders/ORD-1/status",
			map[string]string{"status": "delivered"},
			map[string]string{"Authorization": bearer(t, "admin-1", auth.RoleAdmin)})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, decodeResponse(t, w).Error.Code)
	})

	t.Run("unknown status", func(t *testing.T) {
		router := newOrderRouter(new(MockOrderRepository))

		w := doJSON(router, http.MethodPatch, "/api/v1/admin/orders/ORD-1/status",
			map[string]string{"status": "refunded"},
			map[string]string{"Authorization": bearer(t, "admin-1", auth.RoleAdmin)})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
	})

	t.Run("save failure", func(t *testing.T) {
		repo := new(MockOrderRepository)
		repo.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(storedOrder(t, "ORD-1", "user-1"), nil)
		repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
		router := newOrderRouter(repo)

		w := doJSON(router, http.MethodPatch, "/api/v1/admin/orders/ORD-1/status",
			map[string]string{"status": "cancelled"},
			map[string]string{"Authorization": bearer(t, "admin-1", auth.RoleAdmin)})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
