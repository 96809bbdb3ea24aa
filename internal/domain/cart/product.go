package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
)

// Product is the catalog view of a product as it is placed in the cart.
// Price is kept as the decimal string the catalog returned.
type Product struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Reference string `json:"reference"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Category  string `json:"category,omitempty"`
}

// UnitPrice parses Price as a decimal.
func (p Product) UnitPrice() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(p.Price))
}

// Validate rejects products the cart cannot hold: a missing id or name, or a
// price that is not a non-negative decimal.
func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	price, err := p.UnitPrice()
	if err != nil {
		return shared.NewDomainError("INVALID_PRICE", "Product price must be a decimal number")
	}
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Product price cannot be negative")
	}
	return nil
}
