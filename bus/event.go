// Package bus implements the Kernel's process-wide Event Bus: a
// multi-producer, multi-consumer broadcast channel of typed domain
// events, paired with a pluggable Emitter interface for observability
// backends (spec.md §4.3).
package bus

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of domain event carried on the bus.
type Type string

const (
	NodeCreated        Type = "NodeCreated"
	AgentStarted       Type = "AgentStarted"
	AgentCompleted     Type = "AgentCompleted"
	AgentFailed        Type = "AgentFailed"
	ToolCall           Type = "ToolCall"
	IntermediateLog    Type = "IntermediateLog"
	SystemIntervention Type = "SystemIntervention"
)

// Event is a single domain occurrence (spec.md §4.3: "{event_id, run_id,
// event_type, agent_id?, timestamp, payload:JSON}").
type Event struct {
	EventID   string          `json:"event_id"`
	RunID     string          `json:"run_id"`
	EventType Type            `json:"event_type"`
	AgentID   string          `json:"agent_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// New builds an Event with a fresh event id and the current timestamp.
// payload is marshaled from v; a marshal failure yields a null payload
// rather than an error, since event emission must never block or fail
// the caller (spec.md §4.3 "producers never block").
func New(runID string, eventType Type, agentID string, v interface{}) Event {
	var raw json.RawMessage
	if v != nil {
		if b, err := json.Marshal(v); err == nil {
			raw = b
		}
	}
	return Event{
		EventID:   uuid.NewString(),
		RunID:     runID,
		EventType: eventType,
		AgentID:   agentID,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}
}

// Critical reports whether dropping this event on a slow subscriber is
// unacceptable. Spec.md §4.3: "drops on a slow subscriber are
// acceptable for non-AgentCompleted/Failed events" — the bus gives
// these two types one extra non-blocking send attempt before dropping.
func (e Event) Critical() bool {
	return e.EventType == AgentCompleted || e.EventType == AgentFailed
}
