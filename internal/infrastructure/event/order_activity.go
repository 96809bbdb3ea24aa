package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// OrderActivityLogger writes one structured log line per order event.
type OrderActivityLogger struct {
	logger *zap.Logger
}

// NewOrderActivityLogger creates an OrderActivityLogger
func NewOrderActivityLogger(logger *zap.Logger) *OrderActivityLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderActivityLogger{logger: logger.Named("order_activity")}
}

// EventTypes implements shared.EventHandler
func (h *OrderActivityLogger) EventTypes() []string {
	return []string{order.EventTypeOrderPlaced, order.EventTypeOrderPaid, order.EventTypeOrderStatusChanged}
}

// Handle implements shared.EventHandler
func (h *OrderActivityLogger) Handle(_ context.Context, ev shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.Time("occurred_at", ev.OccurredAt()),
	}
	switch e := ev.(type) {
	case *order.OrderPlacedEvent:
		fields = append(fields,
			zap.String("order_id", e.OrderNumber),
			zap.Bool("guest", e.UserID == ""),
			zap.String("total", e.Total.StringFixed(2)),
			zap.String("currency", e.Currency),
			zap.Int("lines", e.LineCount))
	case *order.OrderPaidEvent:
		fields = append(fields,
			zap.String("order_id", e.OrderNumber),
			zap.String("payment_intent_id", e.PaymentIntentID),
			zap.Int64("amount_minor", e.AmountMinor))
	case *order.OrderStatusChangedEvent:
		fields = append(fields,
			zap.String("order_id", e.OrderNumber),
			zap.String("from", e.From.String()),
			zap.String("to", e.To.String()))
	}
	h.logger.Info("Order activity", fields...)
	return nil
}

var _ shared.EventHandler = (*OrderActivityLogger)(nil)
