package bus

import (
	"context"
	"sync"
)

// BufferedEmitter accumulates events in memory for later inspection,
// adapted from the teacher's graph/emit buffered-batching idiom but
// simplified to a plain append-only log: this project's tests read it
// back directly rather than flushing to a remote batch sink.
type BufferedEmitter struct {
	mu     sync.Mutex
	events []Event
}

// NewBufferedEmitter returns an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{}
}

// Emit appends event to the buffer.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

// Flush is a no-op; BufferedEmitter has no remote backend to drain.
func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// Events returns a copy of every event recorded so far, in
// publication order.
func (b *BufferedEmitter) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}
