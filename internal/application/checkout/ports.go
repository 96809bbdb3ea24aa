package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/order"
)

// CartStore is the part of the cart store checkout reads and clears.
type CartStore interface {
	Items() []cart.Item
	IsEmpty() bool
	TotalPrice() decimal.Decimal
	Fingerprint() string
	ClearCart(ctx context.Context) error
}

// OrderPlacer records an order and returns its id. userID is empty for
// guest checkout.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest, userID string) (*order.PlaceOrderResult, error)
}

// Navigator moves the shopper to the confirmation view.
type Navigator interface {
	ToConfirmation(orderID string)
}

// Notifier shows a blocking message for a failed stage.
type Notifier interface {
	Notify(err *StageError)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(orderID string)

// ToConfirmation calls f(orderID).
func (f NavigatorFunc) ToConfirmation(orderID string) { f(orderID) }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err *StageError)

// Notify calls f(err).
func (f NotifierFunc) Notify(err *StageError) { f(err) }

type nopNotifier struct{}

func (nopNotifier) Notify(*StageError) {}
