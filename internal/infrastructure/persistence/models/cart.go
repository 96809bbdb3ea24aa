package models

import "time"

// CartSnapshotModel stores one serialized cart snapshot per storage key.
type CartSnapshotModel struct {
	Key       string    `gorm:"type:varchar(100);primaryKey"`
	Payload   string    `gorm:"type:text;not null"`
	Version   int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartSnapshotModel) TableName() string {
	return "cart_snapshots"
}
