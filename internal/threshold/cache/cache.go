// Package cache provides the read-side cache for per-tenant threshold sets.
// Two implementations exist: an in-process versioned cache (default) and a
// Redis-backed cache for multi-instance deployments.
package cache

import (
	"context"
	"time"

	"idswyft/internal/threshold/models"
	id "idswyft/pkg/domain"
)

// DefaultTTL bounds staleness for cached threshold sets. Invalidation on
// update makes same-instance reads consistent immediately; the TTL covers
// writes applied by other instances.
const DefaultTTL = 5 * time.Minute

// Cache stores resolved-input threshold sets keyed by tenant. Implementations
// must guarantee that an Invalidate concurrent with a Set never leaves a
// stale entry behind.
type Cache interface {
	Get(ctx context.Context, tenantID id.TenantID) (*models.ThresholdSet, bool)
	Set(ctx context.Context, tenantID id.TenantID, set *models.ThresholdSet)
	Invalidate(ctx context.Context, tenantID id.TenantID)
}
