// Package order implements order placement and the order queries behind the
// storefront API.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// PlacementService places orders. Guest orders are not persisted but still
// get an order number so payments can be correlated. Orders for signed-in
// users are saved through the repository.
type PlacementService struct {
	repo           order.Repository
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	numbers        *NumberGenerator
	events         shared.EventPublisher
	logger         *zap.Logger
}

// PlacementServiceConfig contains dependencies for PlacementService
type PlacementServiceConfig struct {
	Repo order.Repository
	// Idempotency is optional. Without it, replays are only detected for
	// signed-in users through the repository.
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
	Numbers        *NumberGenerator
	// Events receives OrderPlaced, OrderPaid and OrderStatusChanged after
	// the order is stored. Optional.
	Events shared.EventPublisher
	Logger *zap.Logger
}

// NewPlacementService creates a new PlacementService
func NewPlacementService(cfg PlacementServiceConfig) *PlacementService {
	s := &PlacementService{
		repo:           cfg.Repo,
		idempotency:    cfg.Idempotency,
		idempotencyTTL: cfg.IdempotencyTTL,
		numbers:        cfg.Numbers,
		events:         cfg.Events,
		logger:         cfg.Logger,
	}
	if s.idempotencyTTL <= 0 {
		s.idempotencyTTL = shared.DefaultIdempotencyConfig().TTL
	}
	if s.numbers == nil {
		s.numbers = NewNumberGenerator()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func scopedKey(userID, key string) string {
	if userID == "" {
		return "guest:" + key
	}
	return "user:" + userID + ":" + key
}

// PlaceOrder validates req and records it. userID is empty for guests.
// A request whose idempotency key was already used returns the original
// order number with Replayed set.
func (s *PlacementService) PlaceOrder(ctx context.Context, req order.PlaceOrderRequest, userID string) (result *order.PlaceOrderResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "place")
	defer func() {
		telemetry.RecordError(span, err)
		if result != nil {
			telemetry.SetAttributes(span,
				telemetry.SpanAttrOrderID, result.OrderID,
				telemetry.SpanAttrReplayed, result.Replayed)
		}
		span.End()
	}()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrGuest, userID == "",
		telemetry.SpanAttrLineCount, len(req.Items))

	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	orderNumber := s.numbers.Next()

	if req.IdempotencyKey != "" {
		existing, replayed, err := s.reserve(ctx, userID, req.IdempotencyKey, orderNumber)
		if err != nil {
			return nil, err
		}
		if replayed {
			s.logger.Info("Order placement replayed",
				zap.String("order_id", existing),
				zap.String("idempotency_key", req.IdempotencyKey))
			return &order.PlaceOrderResult{OrderID: existing, Replayed: true}, nil
		}
	}

	o, err := order.NewOrder(orderNumber, userID, req)
	if err != nil {
		s.release(ctx, userID, req.IdempotencyKey)
		return nil, err
	}
	if userID != "" {
		if err := s.repo.Save(ctx, o); err != nil {
			s.release(ctx, userID, req.IdempotencyKey)
			s.logger.Error("Failed to save order",
				zap.String("order_id", orderNumber),
				zap.Error(err))
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
	}

	s.logger.Info("Order created",
		zap.String("order_id", orderNumber),
		zap.Bool("guest", userID == ""),
		zap.String("total", req.Total.StringFixed(2)),
		zap.Int("lines", len(req.Items)))
	s.publish(ctx, o)

	return &order.PlaceOrderResult{OrderID: orderNumber}, nil
}

// reserve binds the idempotency key to orderNumber. It reports the earlier
// order number when the key was already used.
func (s *PlacementService) reserve(ctx context.Context, userID, key, orderNumber string) (string, bool, error) {
	if s.idempotency != nil {
		existing, reserved, err := s.idempotency.Reserve(ctx, scopedKey(userID, key), orderNumber, s.idempotencyTTL)
		if err != nil {
			return "", false, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		return existing, !reserved, nil
	}

	if userID == "" || s.repo == nil {
		return "", false, nil
	}
	prior, err := s.repo.FindByIdempotencyKey(ctx, key)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to look up idempotency key: %w", err)
	case prior.UserID != userID:
		return "", false, shared.NewDomainError("CONFLICT", "Idempotency key already used")
	default:
		return prior.OrderNumber, true, nil
	}
}

func (s *PlacementService) release(ctx context.Context, userID, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, scopedKey(userID, key)); err != nil {
		s.logger.Warn("Failed to release idempotency key",
			zap.String("idempotency_key", key),
			zap.Error(err))
	}
}

// GetOrder returns an order owned by userID.
// Orders of other users are reported as not found.
func (s *PlacementService) GetOrder(ctx context.Context, orderNumber, userID string) (*OrderResponse, error) {
	o, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if userID != "" && o.UserID != userID {
		return nil, shared.ErrNotFound
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListUserOrders returns the user's orders, newest first.
func (s *PlacementService) ListUserOrders(ctx context.Context, userID string) ([]OrderResponse, error) {
	if userID == "" {
		return nil, shared.ErrUnauthorized
	}
	orders, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToOrderResponses(orders), nil
}

// UpdateStatus changes an order's status, enforcing the order lifecycle.
func (s *PlacementService) UpdateStatus(ctx context.Context, orderNumber, status string) (*OrderResponse, error) {
	target, err := order.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	o, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.Status == target {
		resp := ToOrderResponse(o)
		return &resp, nil
	}
	from := o.Status
	if err := o.TransitionTo(target); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	s.logger.Info("Order status updated",
		zap.String("order_id", orderNumber),
		zap.String("from", from.String()),
		zap.String("to", target.String()))
	s.publish(ctx, o)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// MarkPaid records a confirmed payment for a persisted order. Guest orders
// are never persisted, so a missing order returns shared.ErrNotFound.
func (s *PlacementService) MarkPaid(ctx context.Context, orderNumber, paymentIntentID string) error {
	o, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	before := o.Status
	if err := o.MarkPaid(paymentIntentID); err != nil {
		return err
	}
	if o.Status == before {
		return nil
	}
	if err := s.repo.Save(ctx, o); err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	s.logger.Info("Order marked paid",
		zap.String("order_id", orderNumber),
		zap.String("payment_intent_id", paymentIntentID))
	s.publish(ctx, o)
	return nil
}

// publish hands the order's pending events to the publisher. Delivery
// failures are logged; the order is already stored.
func (s *PlacementService) publish(ctx context.Context, o *order.Order) {
	events := o.GetDomainEvents()
	o.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish order events",
			zap.String("order_id", o.OrderNumber),
			zap.Error(err))
	}
}
