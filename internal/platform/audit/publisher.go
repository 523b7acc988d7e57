package audit

import (
	"context"
	"sync"
)

// Sink receives audit events. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher fans audit events out to a sink, either synchronously or through a
// buffered background worker. Emit never blocks the request path in async
// mode; when the buffer is full the event is dropped rather than stalling a
// resolution.
type Publisher struct {
	sink Sink

	inbox  chan Event
	done   chan struct{}
	closed sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the given
// buffer capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

// NewPublisher constructs a publisher over the given sink.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.run()
	}
	return p
}

// Emit records an event. In sync mode the sink error is returned; in async
// mode Emit always succeeds and a full buffer drops the event.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p.inbox == nil {
		return p.sink.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		// Buffer full. Audit is best-effort in async mode.
	}
	return nil
}

// Close drains buffered events and stops the worker. Safe to call twice.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox == nil {
			close(p.done)
			return
		}
		close(p.inbox)
		<-p.done
	})
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		_ = p.sink.Append(context.Background(), event)
	}
}
