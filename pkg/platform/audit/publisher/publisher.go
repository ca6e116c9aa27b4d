// Package publisher provides the general audit publisher used by domain
// services. It is append-only and writes through the audit store so tests
// and sandbox deployments can swap sinks easily.
package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	id "idswyft/pkg/domain"
	audit "idswyft/pkg/platform/audit"
)

// ErrBufferFull is returned in async mode when the inbox is saturated and
// the caller's context expires before a slot frees up.
var ErrBufferFull = errors.New("audit buffer full")

type Publisher struct {
	store audit.Store

	inbox  chan audit.Event
	done   chan struct{}
	wg     sync.WaitGroup
	closed sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the
// given inbox capacity. Emit then enqueues instead of writing through.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event. The timestamp defaults to now and the category is
// derived from the action when the caller left it unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

func (p *Publisher) List(ctx context.Context, tenantID id.TenantID) ([]audit.Event, error) {
	return p.store.ListByTenant(ctx, tenantID)
}

// Close stops the async worker after draining any queued events.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.inbox:
			_ = p.store.Append(context.Background(), event)
		case <-p.done:
			// Flush whatever is left before exiting.
			for {
				select {
				case event := <-p.inbox:
					_ = p.store.Append(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}
