package security

import (
	"context"
	"log/slog"
	"time"

	audit "idswyft/pkg/platform/audit"
)

const (
	defaultFlushInterval = time.Second
	defaultFlushBatch    = 100
)

// Publisher stages security events in a ring buffer and flushes them to
// the store in the background. Emit never blocks; under sustained store
// outage the oldest events are dropped and counted.
type Publisher struct {
	store  audit.Store
	buffer *RingBuffer
	logger *slog.Logger

	flushInterval time.Duration
	flushBatch    int
}

type Option func(*Publisher)

func WithBuffer(b *RingBuffer) Option {
	return func(p *Publisher) {
		p.buffer = b
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:         store,
		buffer:        NewRingBuffer(0),
		flushInterval: defaultFlushInterval,
		flushBatch:    defaultFlushBatch,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stages a security event for flushing. Never blocks, never fails.
func (p *Publisher) Emit(_ context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.CategorySecurity
	p.buffer.Enqueue(event)
	return nil
}

// Run flushes the buffer until the context is cancelled, then drains what
// is left.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.flush(context.Background())
			return nil
		case <-ticker.C:
			p.flush(ctx)
		}
	}
}

func (p *Publisher) flush(ctx context.Context) {
	for {
		batch := p.buffer.DequeueBatch(p.flushBatch)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			if err := p.store.Append(ctx, event); err != nil {
				if p.logger != nil {
					p.logger.ErrorContext(ctx, "security audit flush failed, requeueing",
						"action", event.Action,
						"error", err,
					)
				}
				// Requeue and retry on the next tick.
				p.buffer.Enqueue(event)
				return
			}
		}
	}
}
