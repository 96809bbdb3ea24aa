package cart

import "context"

// StorageKey is the fixed namespace the cart is persisted under.
const StorageKey = "cart-storage"

// SnapshotVersion is written with every snapshot so older layouts can be
// migrated on load.
const SnapshotVersion = 0

// Snapshot is the persisted form of a cart.
type Snapshot struct {
	State   SnapshotState `json:"state"`
	Version int           `json:"version"`
}

// SnapshotState holds the persisted cart lines.
type SnapshotState struct {
	Items []Item `json:"items"`
}

// NewSnapshot captures the current lines of c.
func NewSnapshot(c *Cart) Snapshot {
	return Snapshot{
		State:   SnapshotState{Items: c.Items()},
		Version: SnapshotVersion,
	}
}

// SnapshotRepository persists cart snapshots under a key.
// Load returns shared.ErrNotFound when nothing has been saved under key.
type SnapshotRepository interface {
	Load(ctx context.Context, key string) (*Snapshot, error)
	Save(ctx context.Context, key string, snapshot Snapshot) error
	Delete(ctx context.Context, key string) error
}
