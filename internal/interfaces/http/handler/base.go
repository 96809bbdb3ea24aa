package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts application errors to HTTP responses. Domain errors
// carry their own code; payment errors map to the ERR_PAYMENT_ family.
// Anything else is logged and reported as an internal error.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if status == http.StatusInternalServerError {
			// Unmapped domain codes are rule violations raised by validation.
			status = http.StatusBadRequest
		}
		h.Error(c, status, code, domainErr.Message)
		return
	}

	if code, message, ok := paymentErrorCode(err); ok {
		if code == dto.ErrCodePaymentUnavailable || code == dto.ErrCodePaymentFailed {
			logger.GetGinLogger(c).Warn("Payment gateway error", zap.Error(err))
		}
		h.ErrorWithCode(c, code, message)
		return
	}

	logger.GetGinLogger(c).Error("Unhandled request error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

func paymentErrorCode(err error) (code, message string, ok bool) {
	switch {
	case errors.Is(err, payment.ErrInvalidAmount):
		return dto.ErrCodePaymentInvalid, "Amount must be a positive number of minor units matching the order", true
	case errors.Is(err, payment.ErrInvalidOrderID):
		return dto.ErrCodePaymentInvalid, "Order ID is required", true
	case errors.Is(err, payment.ErrInvalidCurrency):
		return dto.ErrCodePaymentInvalid, "Unsupported currency", true
	case errors.Is(err, payment.ErrGatewayNotConfigured):
		return dto.ErrCodePaymentUnavailable, "Payments are not configured", true
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return dto.ErrCodePaymentUnavailable, "Payment provider is temporarily unavailable", true
	case errors.Is(err, payment.ErrGatewayRequestFailed), errors.Is(err, payment.ErrMissingClientSecret):
		return dto.ErrCodePaymentFailed, "Payment provider rejected the request", true
	}
	return "", "", false
}
