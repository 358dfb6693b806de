package audit

import "context"

// Emitter is the interface domain code uses to record audit events.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Store persists audit events. Implementations must be safe for concurrent
// use.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRequest(ctx context.Context, requestID string) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
}

// Sink receives a copy of every published event for forwarding to external
// systems. Sink failures must not block the submission path.
type Sink interface {
	Write(ctx context.Context, event Event) error
}
