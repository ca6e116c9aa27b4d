// Package thresholds provides persistence for per-tenant threshold sets.
package thresholds

import (
	"context"
	"sync"

	"idswyft/internal/threshold/models"
	id "idswyft/pkg/domain"
	"idswyft/pkg/platform/sentinel"
)

// MemoryStore is an in-memory threshold store for tests and local runs.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[id.TenantID]*models.ThresholdSet
}

func NewMemory() *MemoryStore {
	return &MemoryStore{sets: make(map[id.TenantID]*models.ThresholdSet)}
}

func (s *MemoryStore) Find(ctx context.Context, tenantID id.TenantID) (*models.ThresholdSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *set
	return &copied, nil
}

// Save upserts a threshold set. The caller supplies the next version; a
// stored version that is not exactly one behind means a concurrent writer
// won, reported as sentinel.ErrConflict.
func (s *MemoryStore) Save(ctx context.Context, set *models.ThresholdSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.sets[set.TenantID]
	if exists && current.Version != set.Version-1 {
		return sentinel.ErrConflict
	}
	if !exists && set.Version != 1 {
		return sentinel.ErrConflict
	}
	copied := *set
	s.sets[set.TenantID] = &copied
	return nil
}
