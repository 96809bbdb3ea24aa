package shared

import (
	"context"
	"time"
)

// IdempotencyStore maps client supplied idempotency keys to the identifier of
// the resource first created for them.
type IdempotencyStore interface {
	// Reserve binds key to value for ttl if the key is unbound.
	// When the key is already bound it returns the existing value and false.
	Reserve(ctx context.Context, key, value string, ttl time.Duration) (existing string, reserved bool, err error)

	// Lookup returns the value bound to key, or "" when unbound.
	Lookup(ctx context.Context, key string) (string, error)

	// Release drops the binding so the key can be reserved again.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a key stays bound. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled. Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
