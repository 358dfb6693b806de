// Package audit publishes the crossing audit trail. Events are appended to a
// store and optionally forwarded to external sinks; the async mode keeps the
// submission path free of audit latency.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	dErrors "cruce/pkg/domain-errors"
	audit "cruce/pkg/platform/audit"
)

// Publisher records audit events. In sync mode Emit appends directly; with
// WithAsyncBuffer a background worker drains an inbox so callers never wait
// on the store or the sinks.
type Publisher struct {
	store  audit.Store
	sinks  []audit.Sink
	logger *slog.Logger

	inbox   chan audit.Event
	done    chan struct{}
	closed  atomic.Bool
	dropped atomic.Int64
	wg      sync.WaitGroup
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the given
// inbox capacity. When the inbox is full events are dropped, never blocking
// the caller.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

// WithSink forwards every published event to an additional sink.
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithLogger sets the logger used for drop and sink-failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher builds a publisher over the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.inbox != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records one event, filling in ID, timestamp, and category when the
// caller left them zero.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.closed.Load() {
		return dErrors.New(dErrors.CodeUnavailable, "audit publisher closed")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.record(ctx, event)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.inbox <- event:
		return nil
	default:
		p.dropped.Add(1)
		p.logger.Warn("audit buffer full, event dropped",
			slog.String("action", event.Action),
			slog.String("request_id", event.RequestID),
		)
		return dErrors.New(dErrors.CodeUnavailable, "audit buffer full")
	}
}

// List returns the events recorded for one request.
func (p *Publisher) List(ctx context.Context, requestID string) ([]audit.Event, error) {
	return p.store.ListByRequest(ctx, requestID)
}

// Dropped reports how many events were discarded due to a full inbox.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting events and drains the inbox before returning.
func (p *Publisher) Close() {
	if p.closed.Swap(true) {
		return
	}
	if p.inbox != nil {
		close(p.inbox)
		p.wg.Wait()
	}
	close(p.done)
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.inbox {
		// Detached context: the originating request may be long gone.
		if err := p.record(context.Background(), event); err != nil {
			p.logger.Error("audit event not recorded",
				slog.String("action", event.Action),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (p *Publisher) record(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	for _, sink := range p.sinks {
		if err := sink.Write(ctx, event); err != nil {
			// Sinks are best-effort; the store copy is authoritative.
			p.logger.Warn("audit sink write failed",
				slog.String("action", event.Action),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
