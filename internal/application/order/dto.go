package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// OrderResponse is the read model of a persisted order
type OrderResponse struct {
	ID             string              `json:"id"`
	OrderID        string              `json:"orderId"`
	UserID         string              `json:"userId,omitempty"`
	Total          decimal.Decimal     `json:"total"`
	Currency       string              `json:"currency"`
	Status         string              `json:"status"`
	Items          []order.LineItem    `json:"items"`
	Shipping       valueobject.Address `json:"shipping"`
	Billing        valueobject.Address `json:"billing"`
	SameAsShipping bool                `json:"sameAsShipping"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// ToOrderResponse converts a domain order to its read model
func ToOrderResponse(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:             o.ID.String(),
		OrderID:        o.OrderNumber,
		UserID:         o.UserID,
		Total:          o.Total.Amount(),
		Currency:       string(o.Total.Currency()),
		Status:         o.Status.String(),
		Items:          o.Items,
		Shipping:       o.Shipping,
		Billing:        o.Billing,
		SameAsShipping: o.SameAsShipping,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of orders
func ToOrderResponses(orders []*order.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = ToOrderResponse(o)
	}
	return out
}
