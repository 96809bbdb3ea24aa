package billing

import (
	"fmt"
	"strings"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// StripeConfig holds configuration for Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string

	// WebhookSecret is the secret for verifying webhook signatures (whsec_xxx)
	WebhookSecret string

	// DefaultCurrency is used when an intent request carries no currency
	DefaultCurrency string
}

// DefaultStripeConfig returns a default configuration for development/testing
func DefaultStripeConfig() *StripeConfig {
	return &StripeConfig{
		DefaultCurrency: valueobject.DefaultCurrency.Lower(),
	}
}

// IsTestMode reports whether the secret key is a test key
func (c *StripeConfig) IsTestMode() bool {
	return strings.HasPrefix(c.SecretKey, "sk_test_")
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if !strings.HasPrefix(c.SecretKey, "sk_test_") &&
		!strings.HasPrefix(c.SecretKey, "sk_live_") &&
		!strings.HasPrefix(c.SecretKey, "rk_") {
		return fmt.Errorf("stripe: secret key must start with sk_test_, sk_live_ or rk_")
	}
	if c.DefaultCurrency == "" {
		return fmt.Errorf("stripe: default currency is required")
	}
	if _, err := valueobject.ParseCurrency(c.DefaultCurrency); err != nil {
		return fmt.Errorf("stripe: %w", err)
	}
	return nil
}
