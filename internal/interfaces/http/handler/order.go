package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// OrderHandler handles order placement and order queries
type OrderHandler struct {
	BaseHandler
	placement *orderapp.PlacementService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(placement *orderapp.PlacementService) *OrderHandler {
	return &OrderHandler{placement: placement}
}

// PlaceOrder records an order for the signed-in user, or synthesizes an
// order ID for a guest. Replayed idempotency keys answer 200 with the
// original order ID; new orders answer 201.
//
//	POST /api/v1/orders
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req order.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	headerKey := strings.TrimSpace(c.GetHeader(dto.IdempotencyKeyHeader))
	switch {
	case headerKey == "":
	case req.IdempotencyKey == "":
		req.IdempotencyKey = headerKey
	case req.IdempotencyKey != headerKey:
		h.ErrorWithCode(c, dto.ErrCodeIdempotencyKey, "Idempotency-Key header does not match the request body")
		return
	}

	result, err := h.placement.PlaceOrder(c.Request.Context(), req, middleware.GetJWTUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// ListMyOrders returns the signed-in user's orders, newest first
//
//	GET /api/v1/orders/mine
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	orders, err := h.placement.ListUserOrders(c.Request.Context(), middleware.GetJWTUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orders)
}

// GetOrder returns one order. Customers only see their own orders.
//
//	GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	owner := claims.UserID
	if claims.IsAdmin() {
		owner = ""
	}

	resp, err := h.placement.GetOrder(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateStatus moves an order along its lifecycle
//
//	PATCH /api/v1/admin/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	resp, err := h.placement.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
