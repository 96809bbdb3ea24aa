package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ order.Repository = (*GormOrderRepository)(nil)

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Save inserts a new order with its lines, or updates the mutable columns
// of an existing one. Line items never change after placement.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	m := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.OrderModel{}).Where("id = ?", m.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := tx.Create(m).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Order %s already exists", o.OrderNumber))
				}
				return err
			}
			return nil
		}
		return tx.Model(&models.OrderModel{}).
			Where("id = ?", m.ID).
			Updates(map[string]any{
				"status":            m.Status,
				"payment_intent_id": m.PaymentIntentID,
				"updated_at":        m.UpdatedAt,
			}).Error
	})
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, args ...any) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where(query, args...).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain()
}

// FindByOrderNumber finds an order by its ORD- number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return r.findOne(ctx, "order_number = ?", orderNumber)
}

// FindByIdempotencyKey finds the order placed with key
func (r *GormOrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	if key == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "idempotency_key = ?", key)
}

// FindByUser returns the user's orders, newest first
func (r *GormOrderRepository) FindByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("order_number DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]*order.Order, 0, len(rows))
	for i := range rows {
		o, err := rows[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", rows[i].OrderNumber, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}
