package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
)

// DefaultCartKeyPrefix namespaces cart snapshots in Redis
const DefaultCartKeyPrefix = "shop:cart:"

// RedisCartSnapshotRepository keeps cart snapshots as JSON strings in Redis.
// A zero TTL keeps snapshots forever.
type RedisCartSnapshotRepository struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCartSnapshotRepository creates a repository on an existing client
func NewRedisCartSnapshotRepository(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisCartSnapshotRepository {
	if keyPrefix == "" {
		keyPrefix = DefaultCartKeyPrefix
	}
	return &RedisCartSnapshotRepository{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// Load reads the snapshot stored under key
func (r *RedisCartSnapshotRepository) Load(ctx context.Context, key string) (*cart.Snapshot, error) {
	data, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart snapshot: %w", err)
	}

	var snap cart.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cart snapshot: %w", err)
	}
	return &snap, nil
}

// Save overwrites the snapshot stored under key
func (r *RedisCartSnapshotRepository) Save(ctx context.Context, key string, snapshot cart.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.keyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cart snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot stored under key
func (r *RedisCartSnapshotRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cart snapshot: %w", err)
	}
	return nil
}

var _ cart.SnapshotRepository = (*RedisCartSnapshotRepository)(nil)
