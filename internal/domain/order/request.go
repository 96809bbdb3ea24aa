package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// PlaceOrderRequest is what checkout sends to order placement.
type PlaceOrderRequest struct {
	Total          decimal.Decimal      `json:"total"`
	Currency       valueobject.Currency `json:"currency,omitempty"`
	Status         Status               `json:"status"`
	Items          []LineItem           `json:"items"`
	Shipping       valueobject.Address  `json:"shipping"`
	Billing        valueobject.Address  `json:"billing"`
	SameAsShipping bool                 `json:"sameAsShipping"`
	IdempotencyKey string               `json:"idempotencyKey,omitempty"`
}

func (r PlaceOrderRequest) currency() valueobject.Currency {
	c, err := valueobject.ParseCurrency(string(r.Currency))
	if err != nil {
		return valueobject.DefaultCurrency
	}
	return c
}

// ItemsTotal sums the line item subtotals.
func (r PlaceOrderRequest) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range r.Items {
		total = total.Add(li.Subtotal())
	}
	return total
}

// Normalized returns the request with billing copied from shipping when
// SameAsShipping is set.
func (r PlaceOrderRequest) Normalized() PlaceOrderRequest {
	if r.SameAsShipping {
		r.Billing = r.Shipping
	}
	return r
}

// Validate rejects malformed requests before anything is recorded. Billing
// is checked after normalization, so it may be omitted when SameAsShipping
// is set.
func (r PlaceOrderRequest) Validate() error {
	r = r.Normalized()
	if len(r.Items) == 0 {
		return shared.NewDomainError("EMPTY_ORDER", "Order must contain at least one item")
	}
	seen := make(map[string]struct{}, len(r.Items))
	for i, li := range r.Items {
		if err := li.Validate(); err != nil {
			return shared.NewDomainError("INVALID_LINE_ITEM", fmt.Sprintf("item %d: %s", i, err.Error()))
		}
		if _, dup := seen[li.ProductID]; dup {
			return shared.NewDomainError("DUPLICATE_LINE_ITEM", fmt.Sprintf("Product %s appears more than once", li.ProductID))
		}
		seen[li.ProductID] = struct{}{}
	}
	if r.Total.IsNegative() {
		return shared.NewDomainError("INVALID_TOTAL", "Order total cannot be negative")
	}
	if !r.Total.Equal(r.ItemsTotal()) {
		return shared.NewDomainError("TOTAL_MISMATCH",
			fmt.Sprintf("Order total %s does not match line items %s", r.Total.String(), r.ItemsTotal().String()))
	}
	if r.Status != "" && r.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATUS", "New orders must be pending")
	}
	if r.Currency != "" {
		if _, err := valueobject.ParseCurrency(string(r.Currency)); err != nil {
			return shared.NewDomainError("INVALID_CURRENCY", err.Error())
		}
	}
	if err := r.Shipping.Validate(); err != nil {
		return shared.NewDomainError("INVALID_SHIPPING_ADDRESS", err.Error())
	}
	if err := r.Billing.Validate(); err != nil {
		return shared.NewDomainError("INVALID_BILLING_ADDRESS", err.Error())
	}
	if strings.ContainsAny(r.IdempotencyKey, " \t\n") || len(r.IdempotencyKey) > 128 {
		return shared.NewDomainError("INVALID_IDEMPOTENCY_KEY", "Idempotency key must be at most 128 characters without whitespace")
	}
	return nil
}

// PlaceOrderResult is returned by a successful placement.
type PlaceOrderResult struct {
	OrderID string `json:"orderId"`
	// Replayed is true when an earlier placement with the same idempotency
	// key was returned instead of creating a new order.
	Replayed bool `json:"replayed"`
}
