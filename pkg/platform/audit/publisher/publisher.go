// Package publisher fans audit events out to a store, either synchronously or
// through a buffered background worker.
package publisher

import (
	"context"
	"sync"
	"time"

	id "keygate/pkg/domain"
	audit "keygate/pkg/platform/audit"
)

// Store is the persistence surface the publisher writes to.
type Store interface {
	Append(ctx context.Context, event audit.Event) error
	ListByPrincipal(ctx context.Context, principal id.Address) ([]audit.Event, error)
}

// Publisher emits audit events. In sync mode Emit writes through to the
// store; with an async buffer Emit enqueues and a worker drains.
type Publisher struct {
	store Store

	mu     sync.Mutex
	queue  chan audit.Event
	done   chan struct{}
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given queue
// capacity. Emit never blocks the hook path; a full queue drops the event.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.queue = make(chan audit.Event, size)
	}
}

// NewPublisher constructs a publisher over the given store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue != nil {
		go p.drain()
	}
	return p
}

// Emit records an audit event, stamping the emission time when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.queue == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.queue <- event:
	default:
		// Audit must never stall the hook path; a saturated queue loses
		// the event rather than blocking.
	}
	return nil
}

// List returns the stored events for a principal.
func (p *Publisher) List(ctx context.Context, principal id.Address) ([]audit.Event, error) {
	return p.store.ListByPrincipal(ctx, principal)
}

// Close stops the async worker after draining queued events. Safe to call in
// sync mode and safe to call twice.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	if p.queue == nil {
		return
	}
	close(p.queue)
	<-p.done
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.queue {
		_ = p.store.Append(context.Background(), event)
	}
}
