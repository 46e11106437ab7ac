package store

import (
	"context"
	"sync"
	"time"

	"github.com/raro-dev/kernel/runstate"
)

// MemStore is an in-memory Store, used when REDIS_URL is unset
// (spec.md §4.2 "persistence disabled if unset" — here "disabled"
// means "no durable replica survives a process restart", while still
// satisfying every Store operation in-process). Adapted from the
// teacher's graph/store.MemStore: same map-plus-mutex shape, narrowed
// from a generic checkpoint store down to the run-state/artifact
// model this spec needs.
type MemStore struct {
	mu        sync.RWMutex
	states    map[string]*runstate.RunState
	active    map[string]bool
	artifacts map[string]artifactEntry
}

type artifactEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		states:    make(map[string]*runstate.RunState),
		active:    make(map[string]bool),
		artifacts: make(map[string]artifactEntry),
	}
}

// SaveState implements Store.
func (m *MemStore) SaveState(_ context.Context, state *runstate.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.RunID] = state.Clone()
	if state.Status.Terminal() {
		delete(m.active, state.RunID)
	} else {
		m.active[state.RunID] = true
	}
	return nil
}

// LoadActive implements Store.
func (m *MemStore) LoadActive(_ context.Context) ([]*runstate.RunState, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	out := make([]*runstate.RunState, 0, len(ids))
	for _, id := range ids {
		m.mu.RLock()
		s, ok := m.states[id]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		clone := s.Clone()
		rehydrate(clone)
		out = append(out, clone)
	}
	return out, nil
}

// LoadState implements Store.
func (m *MemStore) LoadState(_ context.Context, runID string) (*runstate.RunState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// SaveArtifact implements Store.
func (m *MemStore) SaveArtifact(_ context.Context, runID, agentID string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := artifactEntry{data: append([]byte(nil), data...)}
	if ttl != 0 {
		// A zero ttl means no expiry, as with RedisStore's Set.
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.artifacts[artifactKey(runID, agentID)] = entry
	return nil
}

// LoadArtifact implements Store.
func (m *MemStore) LoadArtifact(_ context.Context, runID, agentID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.artifacts[artifactKey(runID, agentID)]
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

// Close is a no-op for MemStore.
func (m *MemStore) Close() error { return nil }

func artifactKey(runID, agentID string) string {
	return runID + ":" + agentID
}
