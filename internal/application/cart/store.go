// Package cart exposes the shopper's cart as a single persisted store object.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
)

// Store owns one cart and writes it through to a snapshot repository after
// every mutation. It is created once by the composition root and injected
// wherever the cart is needed.
type Store struct {
	mu     sync.Mutex
	cart   *cart.Cart
	repo   cart.SnapshotRepository
	key    string
	logger *zap.Logger
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithStorageKey overrides the key the snapshot is saved under.
func WithStorageKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the store logger
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store and rehydrates it from repo. A missing snapshot
// yields an empty cart.
func NewStore(ctx context.Context, repo cart.SnapshotRepository, opts ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, errors.New("cart store: snapshot repository is required")
	}
	s := &Store{
		cart:   cart.New(),
		repo:   repo,
		key:    cart.StorageKey,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory cart with the persisted snapshot.
func (s *Store) Reload(ctx context.Context) error {
	snap, err := s.repo.Load(ctx, s.key)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("cart store: load snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap == nil {
		s.cart = cart.New()
		return nil
	}
	s.cart = cart.Restore(snap.State.Items)
	s.logger.Debug("Cart rehydrated",
		zap.String("key", s.key),
		zap.Int("lines", s.cart.Len()),
		zap.Int("version", snap.Version))
	return nil
}

// mutate applies fn under the lock and then persists the result. The
// in-memory change stays applied even if the write fails.
func (s *Store) mutate(ctx context.Context, op string, fn func(c *cart.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.cart); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, s.key, cart.NewSnapshot(s.cart)); err != nil {
		s.logger.Warn("Failed to persist cart",
			zap.String("op", op),
			zap.String("key", s.key),
			zap.Error(err))
		return fmt.Errorf("cart store: persist after %s: %w", op, err)
	}
	return nil
}

// AddItem adds one unit of product.
func (s *Store) AddItem(ctx context.Context, product cart.Product) error {
	return s.mutate(ctx, "add", func(c *cart.Cart) error {
		return c.Add(product)
	})
}

// RemoveItem removes the product line. Missing products are ignored.
func (s *Store) RemoveItem(ctx context.Context, productID string) error {
	return s.mutate(ctx, "remove", func(c *cart.Cart) error {
		c.Remove(productID)
		return nil
	})
}

// UpdateQuantity sets the quantity; quantity <= 0 removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	return s.mutate(ctx, "update_quantity", func(c *cart.Cart) error {
		c.SetQuantity(productID, quantity)
		return nil
	})
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, "clear", func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// Items returns a copy of the current lines.
func (s *Store) Items() []cart.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items()
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.IsEmpty()
}

// TotalItems returns the sum of all quantities.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalItems()
}

// TotalPrice returns the unrounded sum of price x quantity.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalPrice()
}

// Fingerprint identifies the current cart contents.
func (s *Store) Fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Fingerprint()
}
