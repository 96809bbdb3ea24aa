package order

import "context"

// Repository persists orders.
// Find methods return shared.ErrNotFound when no order matches.
type Repository interface {
	Save(ctx context.Context, o *Order) error
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	// FindByUser returns the user's orders newest first.
	FindByUser(ctx context.Context, userID string) ([]*Order, error)
}
