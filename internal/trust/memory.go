package trust

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	orgs  map[string]Organization
	rels  map[pairKey]Relationship
	calls map[string]int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:  make(map[string]Organization),
		rels:  make(map[pairKey]Relationship),
		calls: make(map[string]int),
	}
}

// AddOrganization inserts or replaces an organization.
func (m *MemoryStore) AddOrganization(o Organization) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgs[o.ID] = o
}

// SetRelationship inserts or replaces the relationship for its pair.
func (m *MemoryStore) SetRelationship(r Relationship) {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rels[pairKey{source: r.SourceOrg, target: r.TargetOrg}] = r
}

// Organization implements Store.
func (m *MemoryStore) Organization(_ context.Context, id string) (*Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["organization"]++
	o, ok := m.orgs[id]
	if !ok {
		return nil, fmt.Errorf("organization %q: %w", id, ErrNotFound)
	}
	return &o, nil
}

// Relationship implements Store.
func (m *MemoryStore) Relationship(_ context.Context, sourceOrg, targetOrg string) (*Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["relationship"]++
	r, ok := m.rels[pairKey{source: sourceOrg, target: targetOrg}]
	if !ok {
		return nil, fmt.Errorf("relationship %s→%s: %w", sourceOrg, targetOrg, ErrNotFound)
	}
	return &r, nil
}

// Calls returns how many times the named lookup ("organization" or
// "relationship") has been served.
func (m *MemoryStore) Calls(kind string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[kind]
}
