package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/interfaces/http/dto"
)

func newBindRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/intents", func(c *gin.Context) {
		var req dto.CreatePaymentIntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestHandleBindError(t *testing.T) {
	router := newBindRouter()

	t.Run("field errors use json names", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/intents", strings.NewReader(`{"amount_minor":0}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		info := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeValidation, info.Code)
		require.Len(t, info.Details, 2)
		assert.Equal(t, "amount_minor", info.Details[0].Field)
		assert.Equal(t, "This field is required", info.Details[0].Message)
		assert.Equal(t, "order_id", info.Details[1].Field)
	})

	t.Run("bad currency length", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/intents",
			strings.NewReader(`{"amount_minor":100,"order_id":"ORD-1","currency":"CA"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		info := decodeError(t, w)
		require.Len(t, info.Details, 1)
		assert.Equal(t, "currency", info.Details[0].Field)
		assert.Equal(t, "Must be exactly 3 characters", info.Details[0].Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/intents", strings.NewReader(`{"amount_minor":`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeError(t, w).Code)
	})

	t.Run("valid request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/intents",
			strings.NewReader(`{"amount_minor":2500,"order_id":"ORD-1"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
