package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
)

// GormCartSnapshotRepository keeps cart snapshots in the cart_snapshots table
type GormCartSnapshotRepository struct {
	db *gorm.DB
}

// NewGormCartSnapshotRepository creates a new GormCartSnapshotRepository
func NewGormCartSnapshotRepository(db *gorm.DB) *GormCartSnapshotRepository {
	return &GormCartSnapshotRepository{db: db}
}

var _ cart.SnapshotRepository = (*GormCartSnapshotRepository)(nil)

// Load returns the snapshot stored under key
func (r *GormCartSnapshotRepository) Load(ctx context.Context, key string) (*cart.Snapshot, error) {
	var m models.CartSnapshotModel
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	var snap cart.Snapshot
	if err := json.Unmarshal([]byte(m.Payload), &snap); err != nil {
		return nil, fmt.Errorf("decode cart snapshot %q: %w", key, err)
	}
	return &snap, nil
}

// Save upserts the snapshot under key
func (r *GormCartSnapshotRepository) Save(ctx context.Context, key string, snap cart.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	m := models.CartSnapshotModel{
		Key:       key,
		Payload:   string(payload),
		Version:   snap.Version,
		UpdatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "version", "updated_at"}),
	}).Create(&m).Error
}

// Delete removes the snapshot under key; a missing key is not an error
func (r *GormCartSnapshotRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.CartSnapshotModel{}).Error
}
