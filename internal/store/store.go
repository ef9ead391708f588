// Package store holds the session's ephemeral derived assets. Assets are
// created and deleted, never mutated in place, and are never part of
// persisted graph snapshots.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"pixelgraph/internal/assetref"
)

// ErrNotFound is returned when an asset id is unknown (or already deleted).
var ErrNotFound = fmt.Errorf("asset not found")

// Asset is one stored blob with its owning node.
type Asset struct {
	ID          string
	OwnerNodeID string
	Blob        []byte
	CreatedAt   time.Time
}

// Store is the ephemeral asset contract: put/get/delete plus a bulk sweep
// for node teardown.
type Store interface {
	Put(ctx context.Context, ownerNodeID string, blob []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error

	// DeleteOwned removes every asset the given node created.
	DeleteOwned(ctx context.Context, ownerNodeID string) error

	// ResolveDisplayURL returns a renderable reference for the asset, or ""
	// when the asset is unknown.
	ResolveDisplayURL(id string) string

	Close() error
}

// Open returns a sqlite-backed store when path is set, else an in-memory
// one.
func Open(path string) (Store, error) {
	if path == "" {
		return NewMemory(), nil
	}
	return NewSQLite(path)
}

// Memory is the in-process Store used when no session directory is
// configured.
type Memory struct {
	mu     sync.RWMutex
	assets map[string]Asset
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{assets: make(map[string]Asset)}
}

// Put stores a blob and returns its generated id.
func (m *Memory) Put(_ context.Context, ownerNodeID string, blob []byte) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	m.assets[id] = Asset{
		ID:          id,
		OwnerNodeID: ownerNodeID,
		Blob:        blob,
		CreatedAt:   time.Now(),
	}
	m.mu.Unlock()
	return id, nil
}

// Get returns the blob for an id.
func (m *Memory) Get(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	a, ok := m.assets[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return a.Blob, nil
}

// Delete removes an asset. Deleting an unknown id is not an error.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.assets, id)
	m.mu.Unlock()
	return nil
}

// DeleteOwned removes every asset owned by the node.
func (m *Memory) DeleteOwned(_ context.Context, ownerNodeID string) error {
	m.mu.Lock()
	for id, a := range m.assets {
		if a.OwnerNodeID == ownerNodeID {
			delete(m.assets, id)
		}
	}
	m.mu.Unlock()
	return nil
}

// ResolveDisplayURL returns the ephemeral reference form for a stored asset.
func (m *Memory) ResolveDisplayURL(id string) string {
	m.mu.RLock()
	_, ok := m.assets[id]
	m.mu.RUnlock()
	if !ok {
		return ""
	}
	return assetref.Ephemeral(id).String()
}

// Len reports how many assets are held. Used by tests and the teardown
// sweep's logging.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.assets)
}

// Close releases nothing for the in-memory store.
func (m *Memory) Close() error {
	return nil
}
