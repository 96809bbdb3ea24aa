// Package order models storefront orders: the request built at checkout and
// the order record persisted for signed-in shoppers.
package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Status represents the lifecycle state of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// AllStatuses lists the valid statuses in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// ParseStatus normalizes s into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Invalid order status: %q", s))
	}
	return st, nil
}

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusProcessing || target == StatusCancelled
	case StatusProcessing:
		return target == StatusShipped || target == StatusCancelled
	case StatusShipped:
		return target == StatusDelivered
	case StatusDelivered, StatusCancelled:
		return false
	}
	return false
}

// LineItem is one product line of an order, priced at placement time.
type LineItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Subtotal returns unit price x quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Validate checks a single line item
func (li LineItem) Validate() error {
	if strings.TrimSpace(li.ProductID) == "" {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if strings.TrimSpace(li.ProductName) == "" {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if li.Quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if li.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return nil
}

// Order is a placed order. Once created, only its status changes.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string
	UserID          string
	Total           valueobject.Money
	Status          Status
	Items           []LineItem
	Shipping        valueobject.Address
	Billing         valueobject.Address
	SameAsShipping  bool
	IdempotencyKey  string
	PaymentIntentID string
}

// NewOrder creates a pending order from a validated placement request.
func NewOrder(orderNumber, userID string, req PlaceOrderRequest) (*Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	total, err := valueobject.NewMoney(req.Total, req.currency())
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CURRENCY", err.Error())
	}

	items := make([]LineItem, len(req.Items))
	copy(items, req.Items)

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		UserID:            userID,
		Total:             total,
		Status:            StatusPending,
		Items:             items,
		Shipping:          req.Shipping,
		Billing:           req.Billing,
		SameAsShipping:    req.SameAsShipping,
		IdempotencyKey:    req.IdempotencyKey,
	}
	o.AddDomainEvent(NewOrderPlacedEvent(o))
	return o, nil
}

// TransitionTo moves the order to target if the lifecycle allows it.
func (o *Order) TransitionTo(target Status) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Invalid order status: %q", target))
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot change order status from %s to %s", o.Status, target))
	}
	from := o.Status
	o.Status = target
	o.Touch()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from, target))
	return nil
}

// MarkPaid records a confirmed payment. A pending order moves to processing;
// an order that is already past pending is left untouched so replays are
// harmless.
func (o *Order) MarkPaid(paymentIntentID string) error {
	switch o.Status {
	case StatusPending:
		o.PaymentIntentID = paymentIntentID
		if err := o.TransitionTo(StatusProcessing); err != nil {
			return err
		}
		o.AddDomainEvent(NewOrderPaidEvent(o))
		return nil
	case StatusCancelled:
		return shared.NewDomainError("INVALID_STATE", "Cannot mark a cancelled order as paid")
	default:
		return nil
	}
}

// TotalQuantity returns the number of units across all lines.
func (o *Order) TotalQuantity() int {
	n := 0
	for _, li := range o.Items {
		n += li.Quantity
	}
	return n
}
