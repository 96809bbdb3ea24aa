package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// OrderModel is the persistence model for the Order aggregate root.
// Addresses are stored as JSON documents.
type OrderModel struct {
	BaseModel
	OrderNumber     string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	UserID          string              `gorm:"type:varchar(100);not null;index:idx_orders_user_created,priority:1"`
	Total           decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Currency        string              `gorm:"type:varchar(3);not null;default:'CAD'"`
	Status          order.Status        `gorm:"type:varchar(20);not null;default:'pending';index"`
	Items           []OrderItemModel    `gorm:"foreignKey:OrderID;references:ID"`
	Shipping        valueobject.Address `gorm:"type:text;not null"`
	Billing         valueobject.Address `gorm:"type:text"`
	SameAsShipping  bool                `gorm:"not null"`
	IdempotencyKey  string              `gorm:"type:varchar(128);index"`
	PaymentIntentID string              `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() (*order.Order, error) {
	currency, err := valueobject.ParseCurrency(m.Currency)
	if err != nil {
		return nil, err
	}
	total, err := valueobject.NewMoney(m.Total, currency)
	if err != nil {
		return nil, err
	}
	o := &order.Order{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain()},
		OrderNumber:       m.OrderNumber,
		UserID:            m.UserID,
		Total:             total,
		Status:            m.Status,
		Shipping:          m.Shipping,
		Billing:           m.Billing,
		SameAsShipping:    m.SameAsShipping,
		IdempotencyKey:    m.IdempotencyKey,
		PaymentIntentID:   m.PaymentIntentID,
		Items:             make([]order.LineItem, len(m.Items)),
	}
	for i, item := range m.Items {
		o.Items[i] = item.ToDomain()
	}
	return o, nil
}

// OrderModelFromDomain creates a persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Total:           o.Total.Amount(),
		Currency:        string(o.Total.Currency()),
		Status:          o.Status,
		Shipping:        o.Shipping,
		Billing:         o.Billing,
		SameAsShipping:  o.SameAsShipping,
		IdempotencyKey:  o.IdempotencyKey,
		PaymentIntentID: o.PaymentIntentID,
		Items:           make([]OrderItemModel, len(o.Items)),
	}
	m.FromDomainBaseEntity(o.BaseEntity)
	for i, li := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:          uuid.New(),
			OrderID:     o.ID,
			Position:    i,
			ProductID:   li.ProductID,
			ProductName: li.ProductName,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
		}
	}
	return m
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null;default:0"`
	ProductID   string          `gorm:"type:varchar(100);not null"`
	ProductName string          `gorm:"type:varchar(255);not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *OrderItemModel) ToDomain() order.LineItem {
	return order.LineItem{
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
	}
}
