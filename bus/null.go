package bus

import "context"

// NullEmitter discards every event. Useful as the default emitter in
// tests and in deployments that rely solely on channel subscribers.
type NullEmitter struct{}

// Emit discards event.
func (NullEmitter) Emit(Event) {}

// Flush always succeeds.
func (NullEmitter) Flush(context.Context) error { return nil }
