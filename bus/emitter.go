package bus

import "context"

// Emitter receives every event published to a Bus, for pluggable
// observability backends (logging, tracing, metrics). Adapted from
// the teacher's graph/emit.Emitter: implementations must be
// non-blocking, thread-safe, and must never panic.
type Emitter interface {
	// Emit sends a single event. Must not block the publishing
	// goroutine for long, and must not panic.
	Emit(event Event)

	// Flush blocks until any internally buffered events are sent, or
	// ctx is done. Safe to call multiple times.
	Flush(ctx context.Context) error
}
