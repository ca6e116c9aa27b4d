// Package compliance provides the fail-closed audit publisher for
// regulatory events such as verification_decided and thresholds_updated.
// Emit blocks until the event is durably staged in the outbox; when that
// write fails the calling operation must fail with it, because a decision
// without its audit record is not allowed to exist.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "idswyft/pkg/platform/audit"
)

// Publisher writes compliance events synchronously to an outbox-backed
// store.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a compliance publisher over the given store. Durability is
// the store's responsibility; this tier only refuses to swallow errors.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit persists one compliance event. A returned error means the event
// was not staged and the caller must abort its operation.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()

	if event.TenantID.IsNil() {
		return fmt.Errorf("compliance event requires TenantID")
	}
	if event.Action == "" {
		return fmt.Errorf("compliance event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.CategoryCompliance

	if err := p.store.Append(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.IncPersistFailures()
		}
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"action", event.Action,
				"tenant_id", event.TenantID,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.ObservePersistDuration(time.Since(start).Seconds())
		p.metrics.IncEventsEmitted()
	}
	return nil
}

// Close is a no-op; Emit holds no background state.
func (p *Publisher) Close() error {
	return nil
}
