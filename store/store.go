// Package store implements the Kernel's Persistence layer (spec.md
// §4.2): durable replication of RunState, an index of active runs for
// crash rehydration, and a separate artifact KV namespace with
// per-entry TTL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/raro-dev/kernel/runstate"
)

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("store: not found")

// TerminalTTL is how long a terminal run's state key survives after
// save_state (spec.md §4.2: "sets a 24h expiry on the state key").
const TerminalTTL = 24 * time.Hour

// Store persists RunState and provides the active-runs index used for
// crash rehydration, plus a per-entry-TTL artifact namespace.
//
// Implementations must be best-effort (spec.md §4.2: "failure to
// reach the durable KV must log and continue"); callers never block
// scheduler correctness on a Store error except for explicit reads
// that need the data to proceed (e.g. resume's DAG presence check,
// which is answered by the in-memory Graph, not by Store).
type Store interface {
	// SaveState writes state at key run:{id}:state, adds run_id to
	// sys:active_runs, and on terminal status removes it from that set
	// and sets TerminalTTL on the state key.
	SaveState(ctx context.Context, state *runstate.RunState) error

	// LoadActive reads sys:active_runs, loads and deserializes each
	// member, applies the rehydration policy (any loaded `running`
	// state becomes `failed` with a synthetic kernel_restarted
	// invocation), and returns every restored state.
	LoadActive(ctx context.Context) ([]*runstate.RunState, error)

	// LoadState reads a single run's persisted state, for handlers that
	// need to answer against the durable copy rather than the live
	// in-memory registry (e.g. after a restart, before the scheduler
	// has re-registered the run).
	LoadState(ctx context.Context, runID string) (*runstate.RunState, error)

	// SaveArtifact writes the per-dependency output blob at
	// run:{run_id}:agent:{agent_id}:output with ttl.
	SaveArtifact(ctx context.Context, runID, agentID string, data []byte, ttl time.Duration) error

	// LoadArtifact reads a previously saved artifact. Returns
	// ErrNotFound if absent or expired.
	LoadArtifact(ctx context.Context, runID, agentID string) ([]byte, error)

	// Close releases any underlying connection.
	Close() error
}

// kernelRestartedInvocation builds the synthetic invocation recorded
// against any run found `running` at load time (spec.md §4.2
// Rehydration policy).
func kernelRestartedInvocation() runstate.Invocation {
	return runstate.Invocation{
		AgentID:  "kernel",
		Status:   runstate.InvocationFailed,
		ErrorMsg: "kernel_restarted",
		Timestamp: time.Now().UTC(),
	}
}

// rehydrate applies the crash-rehydration policy to a single loaded
// state in place: a `running` status is force-failed with a synthetic
// invocation; awaiting_approval/completed/failed pass through as-is.
func rehydrate(s *runstate.RunState) {
	if s.Status != runstate.StatusRunning {
		return
	}
	s.RecordInvocation(kernelRestartedInvocation())
	_ = s.SetStatus(runstate.StatusFailed) // running->failed is a valid transition
}
