package cache

import (
	"context"
	"sync"
	"time"

	"idswyft/internal/threshold/models"
	id "idswyft/pkg/domain"
)

type memoryEntry struct {
	set        *models.ThresholdSet
	generation uint64
	expiresAt  time.Time
}

// Memory is an in-process TTL cache. Each tenant carries a generation
// counter bumped on Invalidate; a Set racing with an Invalidate is detected
// by the generation check and dropped, so a fill from a pre-update read can
// never resurrect stale data.
type Memory struct {
	mu      sync.Mutex
	entries map[id.TenantID]*memoryEntry
	gens    map[id.TenantID]uint64
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[id.TenantID]*memoryEntry),
		gens:    make(map[id.TenantID]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *Memory) Get(_ context.Context, tenantID id.TenantID) (*models.ThresholdSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[tenantID]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, tenantID)
		return nil, false
	}
	copied := *entry.set
	return &copied, true
}

// Generation returns the current invalidation generation for a tenant.
// Callers snapshot it before a store read and pass it to SetIfCurrent.
func (c *Memory) Generation(tenantID id.TenantID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[tenantID]
}

// SetIfCurrent stores the set only if no invalidation happened since the
// given generation was observed.
func (c *Memory) SetIfCurrent(tenantID id.TenantID, set *models.ThresholdSet, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[tenantID] != generation {
		return
	}
	copied := *set
	c.entries[tenantID] = &memoryEntry{
		set:        &copied,
		generation: generation,
		expiresAt:  c.now().Add(c.ttl),
	}
}

func (c *Memory) Set(_ context.Context, tenantID id.TenantID, set *models.ThresholdSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *set
	c.entries[tenantID] = &memoryEntry{
		set:        &copied,
		generation: c.gens[tenantID],
		expiresAt:  c.now().Add(c.ttl),
	}
}

func (c *Memory) Invalidate(_ context.Context, tenantID id.TenantID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, tenantID)
	c.gens[tenantID]++
}
