// Package runstate holds the Kernel's per-run bookkeeping: the run state
// record (status, active/completed/failed sets, invocation log, token
// total), the thought-signature store, and the cache-resource binding.
// It is the State Store of spec.md §2 — the in-memory structure the
// scheduler mutates on every iteration. Durable replication of this data
// lives in package store.
package runstate

import (
	"fmt"
	"time"
)

// Status is a run's position in its state machine (spec.md §3).
//
// Transitions form a DAG: running -> {awaiting_approval, completed,
// failed}; awaiting_approval -> {running, failed}; completed and failed
// are sinks. idle exists only between workflow submission and scheduler
// start.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusRunning          Status = "running"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// Terminal reports whether s is a sink state (completed or failed).
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// validTransitions encodes the status DAG. A status may always be
// re-set to itself (e.g. re-persisting the same running state).
var validTransitions = map[Status]map[Status]bool{
	StatusIdle:             {StatusRunning: true},
	StatusRunning:          {StatusAwaitingApproval: true, StatusCompleted: true, StatusFailed: true},
	StatusAwaitingApproval: {StatusRunning: true, StatusFailed: true},
	StatusCompleted:        {},
	StatusFailed:           {},
}

// ErrInvalidTransition is returned by RunState.SetStatus when the
// requested transition is not in the status DAG.
type ErrInvalidTransition struct {
	From, To Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("runstate: invalid transition %s -> %s", e.From, e.To)
}

// InvocationStatus is the lifecycle of a single node invocation attempt.
type InvocationStatus string

const (
	InvocationPending InvocationStatus = "pending"
	InvocationRunning InvocationStatus = "running"
	InvocationSuccess InvocationStatus = "success"
	InvocationFailed  InvocationStatus = "failed"
	InvocationPaused  InvocationStatus = "paused"
)

// Invocation is a per-attempt log entry recorded by the scheduler for
// every node dispatch (spec.md §3 Invocation record).
type Invocation struct {
	ID          string           `json:"id"`
	AgentID     string           `json:"agent_id"`
	ModelTier   string           `json:"model_tier"`
	Tools       []string         `json:"tools"`
	Tokens      int              `json:"tokens_used"`
	LatencyMS   int64            `json:"latency_ms"`
	Status      InvocationStatus `json:"status"`
	Timestamp   time.Time        `json:"timestamp"`
	ArtifactKey string           `json:"artifact_key,omitempty"`
	ErrorMsg    string           `json:"error_message,omitempty"`
}

// RunState is the authoritative per-run record (spec.md §3 Run state).
//
// Invariants enforced by this type's methods:
//
//	S1: active, completed, and failed are pairwise disjoint.
//	S2: TotalTokens equals the sum over Invocations[].Tokens.
//	S3: EndTime is set iff Status is terminal.
//	S4: once terminal, Status never changes.
type RunState struct {
	RunID        string       `json:"run_id"`
	WorkflowID   string       `json:"workflow_id"`
	Status       Status       `json:"status"`
	Active       []string     `json:"active"`
	Completed    []string     `json:"completed"`
	Failed       []string     `json:"failed"`
	Invocations  []Invocation `json:"invocations"`
	TotalTokens  int          `json:"total_tokens"`
	StartTime    time.Time    `json:"start_time"`
	EndTime      *time.Time   `json:"end_time,omitempty"`
	CacheContent string       `json:"cache_content_id,omitempty"`
}

// New creates an idle RunState for a fresh run.
func New(runID, workflowID string) *RunState {
	return &RunState{
		RunID:      runID,
		WorkflowID: workflowID,
		Status:     StatusIdle,
		StartTime:  time.Now().UTC(),
	}
}

// Clone returns a deep copy, so callers (external handlers reading state
// while the scheduler mutates its own copy) never observe a half-written
// record.
func (r *RunState) Clone() *RunState {
	out := *r
	out.Active = append([]string(nil), r.Active...)
	out.Completed = append([]string(nil), r.Completed...)
	out.Failed = append([]string(nil), r.Failed...)
	out.Invocations = append([]Invocation(nil), r.Invocations...)
	if r.EndTime != nil {
		t := *r.EndTime
		out.EndTime = &t
	}
	return &out
}

// SetStatus validates the transition against the status DAG (S4: a
// terminal status can only be "transitioned" to itself) and, on
// transition into a terminal status, stamps EndTime (S3).
func (r *RunState) SetStatus(to Status) error {
	if r.Status == to {
		return nil
	}
	if r.Status.Terminal() {
		return &ErrInvalidTransition{From: r.Status, To: to}
	}
	if !validTransitions[r.Status][to] {
		return &ErrInvalidTransition{From: r.Status, To: to}
	}
	r.Status = to
	if to.Terminal() {
		now := time.Now().UTC()
		r.EndTime = &now
	}
	return nil
}

// MarkActive moves id into Active, removing it from Completed/Failed if
// present there (S1).
func (r *RunState) MarkActive(id string) {
	r.Completed = removeString(r.Completed, id)
	r.Failed = removeString(r.Failed, id)
	if !containsString(r.Active, id) {
		r.Active = append(r.Active, id)
	}
}

// MarkCompleted moves id from Active into Completed (S1).
func (r *RunState) MarkCompleted(id string) {
	r.Active = removeString(r.Active, id)
	if !containsString(r.Completed, id) {
		r.Completed = append(r.Completed, id)
	}
}

// MarkFailed moves id from Active into Failed (S1).
func (r *RunState) MarkFailed(id string) {
	r.Active = removeString(r.Active, id)
	if !containsString(r.Failed, id) {
		r.Failed = append(r.Failed, id)
	}
}

// RecordInvocation appends inv to the invocation log and recomputes
// TotalTokens from scratch, keeping S2 exact regardless of call order.
func (r *RunState) RecordInvocation(inv Invocation) {
	r.Invocations = append(r.Invocations, inv)
	total := 0
	for _, i := range r.Invocations {
		total += i.Tokens
	}
	r.TotalTokens = total
}

// IsPendingNode reports whether id has not yet been dispatched: absent
// from all three of active, completed, and failed.
func (r *RunState) IsPendingNode(id string) bool {
	return !containsString(r.Active, id) && !containsString(r.Completed, id) && !containsString(r.Failed, id)
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func removeString(xs []string, x string) []string {
	out := xs[:0:0]
	for _, v := range xs {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}
