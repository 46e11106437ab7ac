// Package pattern implements the Pattern Engine (spec.md §4.4): a
// registry of event-condition-action rules, loaded once at boot, that
// subscribes to the Event Bus and reacts to matching events with an
// Interrupt, RequestApproval, or SpawnAgent action.
package pattern

import (
	"encoding/json"
	"strings"

	"github.com/raro-dev/kernel/bus"
	"github.com/raro-dev/kernel/runstate"
)

// ActionKind identifies which of the three action shapes a Pattern
// carries.
type ActionKind string

const (
	ActionInterrupt       ActionKind = "Interrupt"
	ActionRequestApproval ActionKind = "RequestApproval"
	ActionSpawnAgent      ActionKind = "SpawnAgent"
)

// Action is the (reason | node config) payload executed when a
// Pattern's condition matches.
type Action struct {
	Kind   ActionKind          `json:"kind"`
	Reason string              `json:"reason,omitempty"`
	Node   *runstate.NodeConfig `json:"node,omitempty"`
}

// Pattern is one event-condition-action rule (spec.md §4.4: "{id,
// name, trigger_event, condition, action}").
type Pattern struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TriggerEvent string `json:"trigger_event"`
	Condition    string `json:"condition"`
	Action       Action `json:"action"`
}

// matches reports whether p fires for ev: the trigger event type
// string-matches, and the condition is either "*" or a substring
// match against the event payload's JSON serialization (spec.md §4.4
// "MVP: substring match against payload's JSON serialization").
func (p Pattern) matches(ev bus.Event) bool {
	if p.TriggerEvent != string(ev.EventType) {
		return false
	}
	if p.Condition == "*" {
		return true
	}
	return strings.Contains(string(ev.Payload), p.Condition)
}

// Handlers are the run-control callbacks a Pattern's action invokes.
// Supplied by the scheduler, which owns fail_run/request_approval.
type Handlers struct {
	FailRun         func(runID, agentID, reason string)
	RequestApproval func(runID, agentID, reason string)
	SpawnAgent      func(runID, parentAgentID string, node runstate.NodeConfig)
	// OnHit is an optional observability hook invoked with a matched
	// pattern's id before its action executes (wired to the
	// pattern_hits_total metric; nil is a no-op).
	OnHit func(patternID string)
}

// Engine holds the immutable pattern set loaded at boot (spec.md §2
// "The Pattern Registry is immutable after boot load") and dispatches
// against inbound bus events.
type Engine struct {
	patterns []Pattern
	handlers Handlers
}

// New returns an Engine with the given patterns (already loaded) and
// handlers.
func New(patterns []Pattern, handlers Handlers) *Engine {
	return &Engine{patterns: append([]Pattern(nil), patterns...), handlers: handlers}
}

// LoadFromJSON parses a pattern config file's contents (spec.md §6
// "Pattern config file. JSON array of {...}").
func LoadFromJSON(data []byte) ([]Pattern, error) {
	var out []Pattern
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DefaultPatterns are the hard-coded fallback patterns used when the
// config file cannot be read (spec.md §4.4: "fallback to hard-coded
// defaults on IO error") and which spec.md mandates regardless:
// block fs_delete tool calls, and gate every AgentFailed behind
// approval.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			ID:           "default-block-fs-delete",
			Name:         "block fs_delete tool calls",
			TriggerEvent: string(bus.ToolCall),
			Condition:    "fs_delete",
			Action:       Action{Kind: ActionInterrupt, Reason: "fs_delete tool calls are not permitted"},
		},
		{
			ID:           "default-gate-agent-failed",
			Name:         "request approval on agent failure",
			TriggerEvent: string(bus.AgentFailed),
			Condition:    "*",
			Action:       Action{Kind: ActionRequestApproval, Reason: "agent failed; operator approval required to retry"},
		},
	}
}

// Dispatch evaluates ev against every pattern in declared order and
// executes the first match's action (spec.md §4.4: "execute the
// first-hit action"). Subsequent matching patterns are not evaluated
// for the same event.
func (e *Engine) Dispatch(ev bus.Event) {
	for _, p := range e.patterns {
		if !p.matches(ev) {
			continue
		}
		if e.handlers.OnHit != nil {
			e.handlers.OnHit(p.ID)
		}
		e.execute(p, ev)
		return
	}
}

func (e *Engine) execute(p Pattern, ev bus.Event) {
	switch p.Action.Kind {
	case ActionInterrupt:
		if e.handlers.FailRun != nil {
			e.handlers.FailRun(ev.RunID, ev.AgentID, p.Action.Reason)
		}
	case ActionRequestApproval:
		if e.handlers.RequestApproval != nil {
			e.handlers.RequestApproval(ev.RunID, ev.AgentID, p.Action.Reason)
		}
	case ActionSpawnAgent:
		if e.handlers.SpawnAgent != nil && p.Action.Node != nil {
			e.handlers.SpawnAgent(ev.RunID, ev.AgentID, *p.Action.Node)
		}
	}
}
