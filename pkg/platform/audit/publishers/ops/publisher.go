package ops

import (
	"context"
	"log/slog"
	"time"

	audit "idswyft/pkg/platform/audit"
)

// Publisher emits operational events best-effort: events may be dropped by
// sampling or an open circuit, and persistence failures never propagate to
// the caller.
type Publisher struct {
	store   audit.Store
	sampler *Sampler
	breaker *CircuitBreaker
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		p.sampler = s
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *Publisher) {
		p.breaker = cb
	}
}

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

// New creates an ops publisher. Without options it samples everything and
// opens the circuit after 5 consecutive store failures.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		sampler: NewSampler(1.0),
		breaker: NewCircuitBreaker(5, time.Minute),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records an operational event. Always returns nil: ops auditing is
// never allowed to fail the business operation.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if !p.sampler.ShouldSample(event.Action) {
		if p.metrics != nil {
			p.metrics.IncSampled()
		}
		return nil
	}
	if !p.breaker.Allow() {
		if p.metrics != nil {
			p.metrics.IncCircuitBreakerDropped()
			p.metrics.SetCircuitBreakerState(true)
		}
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.CategoryOperations

	if err := p.store.Append(ctx, event); err != nil {
		p.breaker.RecordFailure()
		if p.metrics != nil {
			p.metrics.IncPersistFailures()
			p.metrics.SetCircuitBreakerState(p.breaker.IsOpen())
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "ops audit write failed, dropping event",
				"action", event.Action,
				"error", err,
			)
		}
		return nil
	}

	p.breaker.RecordSuccess()
	if p.metrics != nil {
		p.metrics.IncTracked()
		p.metrics.SetCircuitBreakerState(false)
	}
	return nil
}

// Close is a no-op for the synchronous ops publisher.
func (p *Publisher) Close() error {
	return nil
}
