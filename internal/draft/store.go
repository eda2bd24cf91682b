// Package draft persists cart snapshots across sessions. The engine reads
// an initial snapshot once per session and writes after every successful
// mutation; it owns no persistence logic beyond that.
package draft

import (
	"context"
	"sync"

	"github.com/kiranaops/bolbill/internal/cart"
)

// Store saves and restores per-session cart drafts.
type Store interface {
	// Save overwrites the draft for sessionID.
	Save(ctx context.Context, sessionID string, snap cart.Snapshot) error

	// Load returns the draft for sessionID. found is false when no draft
	// exists, which is not an error.
	Load(ctx context.Context, sessionID string) (snap cart.Snapshot, found bool, err error)

	// Delete removes the draft for sessionID, if any.
	Delete(ctx context.Context, sessionID string) error
}

// MemStore is an in-memory [Store] for single-device deployments and tests.
// Safe for concurrent use.
type MemStore struct {
	mu     sync.RWMutex
	drafts map[string]cart.Snapshot
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory draft store.
func NewMemStore() *MemStore {
	return &MemStore{drafts: make(map[string]cart.Snapshot)}
}

// Save implements [Store].
func (m *MemStore) Save(ctx context.Context, sessionID string, snap cart.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[sessionID] = snap
	return nil
}

// Load implements [Store].
func (m *MemStore) Load(ctx context.Context, sessionID string) (cart.Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.drafts[sessionID]
	return snap, ok, nil
}

// Delete implements [Store].
func (m *MemStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sessionID)
	return nil
}
