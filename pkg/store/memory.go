package store

import (
	"context"
	"sort"
	"sync"

	"github.com/vormap/vormap/pkg/snapshot"
)

// MemoryStore keeps artifacts in process memory. Artifacts are copied via
// serialization on Put and Get so callers cannot mutate stored state.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string][]byte
	descs map[string]snapshot.Descriptor
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string][]byte),
		descs: make(map[string]snapshot.Descriptor),
	}
}

// Put stores an artifact.
func (s *MemoryStore) Put(ctx context.Context, h *snapshot.Hierarchy) error {
	data, err := snapshot.MarshalHierarchy(h)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[h.Snapshot.ID] = data
	s.descs[h.Snapshot.ID] = h.Snapshot
	return nil
}

// Get loads the artifact for a snapshot.
func (s *MemoryStore) Get(ctx context.Context, snapshotID string) (*snapshot.Hierarchy, error) {
	s.mu.RLock()
	data, ok := s.byID[snapshotID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot.UnmarshalHierarchy(data)
}

// List returns descriptors for all stored snapshots, newest first by id.
func (s *MemoryStore) List(ctx context.Context) ([]snapshot.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]snapshot.Descriptor, 0, len(s.descs))
	for _, d := range s.descs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Delete removes an artifact.
func (s *MemoryStore) Delete(ctx context.Context, snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, snapshotID)
	delete(s.descs, snapshotID)
	return nil
}

// Close does nothing for the memory store.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
