package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
)

// OrderPayments records confirmed payments on orders
type OrderPayments interface {
	MarkPaid(ctx context.Context, orderNumber, paymentIntentID string) error
}

// StripeWebhookService handles payment processor webhook events
type StripeWebhookService struct {
	verifier payment.EventVerifier
	orders   OrderPayments
	seen     shared.IdempotencyStore
	seenTTL  time.Duration
	logger   *zap.Logger
}

// StripeWebhookServiceConfig contains configuration for StripeWebhookService
type StripeWebhookServiceConfig struct {
	Verifier payment.EventVerifier
	Orders   OrderPayments
	// Seen is optional; when set, redelivered events are acknowledged
	// without being applied twice.
	Seen    shared.IdempotencyStore
	SeenTTL time.Duration
	Logger  *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(cfg StripeWebhookServiceConfig) *StripeWebhookService {
	s := &StripeWebhookService{
		verifier: cfg.Verifier,
		orders:   cfg.Orders,
		seen:     cfg.Seen,
		seenTTL:  cfg.SeenTTL,
		logger:   cfg.Logger,
	}
	if s.seenTTL <= 0 {
		s.seenTTL = 72 * time.Hour
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies and applies a webhook event
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.verifier == nil {
		return nil, payment.ErrGatewayNotConfigured
	}
	event, err := s.verifier.VerifyEvent(payload, signature)
	if err != nil {
		s.logger.Warn("Failed to verify webhook signature", zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	s.logger.Info("Processing payment webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	first, err := s.markSeen(ctx, event.ID)
	if err != nil {
		result.Processed = false
		return result, err
	}
	if !first {
		result.Message = "Event already processed"
		return result, nil
	}

	switch event.Type {
	case payment.EventIntentSucceeded:
		result.Message, err = s.handleIntentSucceeded(ctx, event)
	case payment.EventIntentFailed:
		s.logger.Warn("Payment failed",
			zap.String("order_id", event.OrderID),
			zap.String("payment_intent_id", event.IntentID),
			zap.String("reason", event.FailureMessage))
	case payment.EventIntentCanceled:
		s.logger.Info("Payment intent canceled",
			zap.String("order_id", event.OrderID),
			zap.String("payment_intent_id", event.IntentID))
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.forget(ctx, event.ID)
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}
	return result, nil
}

func (s *StripeWebhookService) handleIntentSucceeded(ctx context.Context, event *payment.Event) (string, error) {
	if event.OrderID == "" {
		s.logger.Warn("Payment intent has no order_id metadata, skipping",
			zap.String("payment_intent_id", event.IntentID))
		return "No order reference", nil
	}
	if s.orders == nil {
		return "", fmt.Errorf("order service not configured")
	}
	err := s.orders.MarkPaid(ctx, event.OrderID, event.IntentID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		s.logger.Info("Payment succeeded for guest order",
			zap.String("order_id", event.OrderID),
			zap.String("payment_intent_id", event.IntentID))
		return "Guest order, nothing to update", nil
	case err != nil:
		return "", fmt.Errorf("failed to mark order %s paid: %w", event.OrderID, err)
	}
	return "", nil
}

func (s *StripeWebhookService) markSeen(ctx context.Context, eventID string) (bool, error) {
	if s.seen == nil || eventID == "" {
		return true, nil
	}
	_, reserved, err := s.seen.Reserve(ctx, "stripe-event:"+eventID, time.Now().UTC().Format(time.RFC3339), s.seenTTL)
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	return reserved, nil
}

func (s *StripeWebhookService) forget(ctx context.Context, eventID string) {
	if s.seen == nil || eventID == "" {
		return
	}
	if err := s.seen.Release(ctx, "stripe-event:"+eventID); err != nil {
		s.logger.Warn("Failed to release webhook event", zap.String("event_id", eventID), zap.Error(err))
	}
}
