// Package models contains GORM persistence models that map to database tables.
// They are kept apart from domain entities so the domain stays free of ORM
// tags; repositories convert between the two.
//
// - base.go: BaseModel shared by entities with a uuid primary key
// - order.go: orders and order_items
// - cart.go: cart_snapshots
package models
