// Package cartfile keeps cart snapshots in a local JSON file, one entry per
// storage key, in the same {"state":{"items":[...]},"version":0} shape the
// other snapshot repositories use.
package cartfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
)

// Repository implements cart.SnapshotRepository on top of a single file.
type Repository struct {
	mu   sync.Mutex
	path string
}

var _ cart.SnapshotRepository = (*Repository)(nil)

// New returns a repository backed by path. The file and its directory are
// created on the first Save.
func New(path string) *Repository {
	return &Repository{path: path}
}

// Path returns the backing file path
func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) readAll() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	entries := map[string]json.RawMessage{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return entries, nil
}

// writeAll replaces the file atomically so a crash never leaves a torn cart.
func (r *Repository) writeAll(entries map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".cart-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

// Load returns the snapshot stored under key, or shared.ErrNotFound
func (r *Repository) Load(_ context.Context, key string) (*cart.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readAll()
	if err != nil {
		return nil, err
	}
	raw, ok := entries[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	var snap cart.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode cart snapshot %q: %w", key, err)
	}
	return &snap, nil
}

// Save stores snap under key, keeping other keys intact
func (r *Repository) Save(_ context.Context, key string, snap cart.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readAll()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	entries[key] = raw
	return r.writeAll(entries)
}

// Delete removes key; a missing key is not an error
func (r *Repository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readAll()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return r.writeAll(entries)
}
