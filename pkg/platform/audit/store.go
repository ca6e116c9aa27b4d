package audit

import (
	"context"

	id "idswyft/pkg/domain"
)

// Store persists audit events. The postgres implementation writes to the
// transactional outbox; the memory implementation backs tests and sandbox
// deployments.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
