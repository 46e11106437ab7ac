package pattern

import "github.com/raro-dev/kernel/bus"

// Run drains sub, dispatching every event it receives against the
// pattern set, until the subscription's channel closes. sub is an
// ordinary bus subscription: Publish does not wait for the engine, so
// events dropped while its buffer is full are never dispatched, and its
// actions (Interrupt, RequestApproval) run asynchronously to the
// scheduler loop. Callers run this in its own goroutine.
func (e *Engine) Run(sub *bus.Subscription) {
	for ev := range sub.Events() {
		e.Dispatch(ev)
	}
}
