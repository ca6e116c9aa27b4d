// Package publishers routes audit events to the category-specific
// publishers: compliance events fail closed, security events are buffered,
// operational events are sampled best-effort.
package publishers

import (
	"context"

	audit "idswyft/pkg/platform/audit"
)

// Emitter is the common surface of the category publishers.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Router dispatches each event to its category publisher based on the
// action's category mapping.
type Router struct {
	compliance Emitter
	security   Emitter
	ops        Emitter
}

func NewRouter(compliance, security, ops Emitter) *Router {
	return &Router{
		compliance: compliance,
		security:   security,
		ops:        ops,
	}
}

func (r *Router) Emit(ctx context.Context, event audit.Event) error {
	switch audit.AuditEvent(event.Action).Category() {
	case audit.CategoryCompliance:
		return r.compliance.Emit(ctx, event)
	case audit.CategorySecurity:
		return r.security.Emit(ctx, event)
	default:
		return r.ops.Emit(ctx, event)
	}
}
