package event

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// OrderMetrics turns order events into OpenTelemetry counters.
type OrderMetrics struct {
	placed        *telemetry.Counter
	placedValue   *telemetry.Histogram
	paid          *telemetry.Counter
	paidMinor     *telemetry.Counter
	statusChanges *telemetry.Counter
}

// NewOrderMetrics registers the order instruments on meter
func NewOrderMetrics(meter metric.Meter) (*OrderMetrics, error) {
	m := &OrderMetrics{}
	var err error
	if m.placed, err = telemetry.NewCounter(meter,
		"storefront_orders_placed_total", "Orders accepted at checkout", "{orders}"); err != nil {
		return nil, err
	}
	if m.placedValue, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "storefront_order_value",
		Description: "Order totals at placement in major currency units",
		Unit:        "{currency}",
		Boundaries:  telemetry.OrderValueBuckets,
	}); err != nil {
		return nil, err
	}
	if m.paid, err = telemetry.NewCounter(meter,
		"storefront_orders_paid_total", "Orders with a confirmed payment", "{orders}"); err != nil {
		return nil, err
	}
	if m.paidMinor, err = telemetry.NewCounter(meter,
		"storefront_payments_amount_minor_total", "Confirmed payment amounts in minor units", "{minor}"); err != nil {
		return nil, err
	}
	if m.statusChanges, err = telemetry.NewCounter(meter,
		"storefront_order_status_changes_total", "Order lifecycle transitions", "{transitions}"); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes implements shared.EventHandler
func (m *OrderMetrics) EventTypes() []string {
	return []string{order.EventTypeOrderPlaced, order.EventTypeOrderPaid, order.EventTypeOrderStatusChanged}
}

// Handle implements shared.EventHandler
func (m *OrderMetrics) Handle(ctx context.Context, ev shared.DomainEvent) error {
	switch e := ev.(type) {
	case *order.OrderPlacedEvent:
		currency := telemetry.AttrCurrency.String(e.Currency)
		m.placed.Inc(ctx, telemetry.AttrGuest.Bool(e.UserID == ""), currency)
		m.placedValue.Record(ctx, e.Total.InexactFloat64(), currency)
	case *order.OrderPaidEvent:
		status := telemetry.AttrPaymentStatus.String("succeeded")
		m.paid.Inc(ctx, status)
		m.paidMinor.Add(ctx, e.AmountMinor, status)
	case *order.OrderStatusChangedEvent:
		m.statusChanges.Inc(ctx, telemetry.AttrOrderStatus.String(e.To.String()))
	}
	return nil
}

var _ shared.EventHandler = (*OrderMetrics)(nil)
