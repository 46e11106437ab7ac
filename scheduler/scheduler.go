// Package scheduler implements the Kernel's core loop (spec.md §4.6):
// one dedicated loop per run that selects the next ready node,
// assembles its payload, invokes the worker, evaluates the result,
// and either records success or trips the circuit breaker — plus
// delegation splicing (§4.7), the graph-surgery protocol a successful
// response can trigger mid-run.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/raro-dev/kernel/assembler"
	"github.com/raro-dev/kernel/budget"
	"github.com/raro-dev/kernel/bus"
	"github.com/raro-dev/kernel/dag"
	"github.com/raro-dev/kernel/invoker"
	"github.com/raro-dev/kernel/metrics"
	"github.com/raro-dev/kernel/runstate"
	"github.com/raro-dev/kernel/store"
)

// quiescenceSleep is the fixed interval the loop waits before
// re-checking for a ready node when some node is still active
// (spec.md §4.6 item 3: "sleep briefly (≈100 ms) and retry").
const quiescenceSleep = 100 * time.Millisecond

// artifactTTL is the fixed TTL applied to a node's stored artifact
// (spec.md §4.6 item 9: "1-hour TTL").
const artifactTTL = time.Hour

// PuppetWaiter is implemented by the optional puppet-mode rendezvous
// backend (spec.md §4.6 item 4); nil disables puppet mode entirely.
type PuppetWaiter interface {
	// AwaitDecision publishes an awaiting_decision record for
	// (runID, agentID) and blocks up to timeout for an operator
	// response, returning ok=false on timeout or absence.
	AwaitDecision(ctx context.Context, runID, agentID string, timeout time.Duration) (ok bool)
}

// Scheduler owns every run's core loop.
type Scheduler struct {
	Runs       *runstate.Registry
	Graphs     *GraphRegistry
	Workflows  *WorkflowRegistry
	Signatures *runstate.SignatureStore
	Store      store.Store
	Bus        *bus.Bus
	Assembler  *assembler.Assembler
	Invoker    *invoker.Invoker
	Puppet     PuppetWaiter
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Budget     *budget.Tracker
}

// New returns a Scheduler wired to the given collaborators. A nil
// logger uses slog.Default(); a nil metrics collector disables metric
// recording entirely.
func New(runs *runstate.Registry, graphs *GraphRegistry, workflows *WorkflowRegistry, sigs *runstate.SignatureStore, st store.Store, b *bus.Bus, asm *assembler.Assembler, inv *invoker.Invoker, puppet PuppetWaiter, logger *slog.Logger, mtr *metrics.Metrics) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if mtr == nil {
		mtr = metrics.New(prometheus.NewRegistry())
		mtr.Disable()
	}
	return &Scheduler{
		Runs: runs, Graphs: graphs, Workflows: workflows, Signatures: sigs,
		Store: st, Bus: b, Assembler: asm, Invoker: inv, Puppet: puppet, Logger: logger, Metrics: mtr,
		Budget: budget.NewTracker(nil),
	}
}

// Start submits wf as a new run: builds its Graph from declared
// dependencies, registers RunState/Graph/WorkflowConfig, flips status
// to running, and spawns the scheduler loop under the caller-supplied
// runID. Returns an error if wf's dependencies do not form a valid graph.
func (s *Scheduler) Start(ctx context.Context, runID string, wf *runstate.WorkflowConfig) error {
	g := dag.New()
	for _, n := range wf.Nodes {
		g.AddNode(n.ID)
	}
	for _, n := range wf.Nodes {
		for _, dep := range n.DependsOn {
			if err := g.AddEdge(dep, n.ID); err != nil {
				return fmt.Errorf("scheduler: workflow config produces invalid graph: %w", err)
			}
		}
	}

	run := runstate.New(runID, wf.ID)
	if err := run.SetStatus(runstate.StatusRunning); err != nil {
		return err
	}

	s.Runs.Insert(run)
	s.Graphs.Set(runID, g)
	s.Workflows.Set(runID, wf)
	s.refreshRunGauges()

	go s.Loop(ctx, runID)
	return nil
}

// refreshRunGauges recomputes the active_runs and awaiting_approval_runs
// gauges from the live registry. Called after every status transition
// rather than incrementally, since a run can reach a given status from
// more than one code path.
func (s *Scheduler) refreshRunGauges() {
	var running, awaiting int
	for _, id := range s.Runs.Keys() {
		run, ok := s.Runs.Get(id)
		if !ok {
			continue
		}
		switch run.Status {
		case runstate.StatusRunning:
			running++
		case runstate.StatusAwaitingApproval:
			awaiting++
		}
	}
	s.Metrics.SetActiveRuns(running)
	s.Metrics.SetAwaitingApprovalRuns(awaiting)
}

// Resume validates the run's Graph is still in memory, flips status
// back to running, and spawns a fresh loop (spec.md §5 "Pause/resume").
func (s *Scheduler) Resume(ctx context.Context, runID string) error {
	if _, ok := s.Graphs.Get(runID); !ok {
		return errGraphMissing
	}
	ok := s.Runs.Mutate(runID, func(r *runstate.RunState) {
		_ = r.SetStatus(runstate.StatusRunning)
	})
	if !ok {
		return errGraphMissing
	}
	s.refreshRunGauges()
	go s.Loop(ctx, runID)
	return nil
}

// Stop fails the run immediately; the loop observes this on its next
// status gate and exits (spec.md §5 "Cancellation and timeouts").
func (s *Scheduler) Stop(runID string) {
	s.FailRun(runID, "", "stopped by operator")
}

// FailRun flips status to failed, records a synthetic invocation
// attributing the failure to agentID, persists, and triggers worker
// cleanup.
func (s *Scheduler) FailRun(runID, agentID, reason string) {
	s.Runs.Mutate(runID, func(r *runstate.RunState) {
		r.RecordInvocation(runstate.Invocation{
			AgentID: agentID, Status: runstate.InvocationFailed,
			ErrorMsg: reason, Timestamp: time.Now().UTC(),
		})
		_ = r.SetStatus(runstate.StatusFailed)
	})
	s.persist(runID)
	s.Invoker.Cleanup(runID)
	s.Budget.Forget(runID)
	s.refreshRunGauges()
	s.publish(runID, bus.AgentFailed, agentID, map[string]string{"reason": reason})
}

// RequestApproval sets status to awaiting_approval and emits
// SystemIntervention (spec.md §4.4 RequestApproval action).
func (s *Scheduler) RequestApproval(runID, agentID, reason string) {
	s.Runs.Mutate(runID, func(r *runstate.RunState) {
		_ = r.SetStatus(runstate.StatusAwaitingApproval)
	})
	s.persist(runID)
	s.refreshRunGauges()
	s.publish(runID, bus.SystemIntervention, agentID, map[string]string{"reason": reason})
}

// SpawnAgent is the Pattern Engine's SpawnAgent action: it synthesizes
// a Sibling delegation off the named parent.
func (s *Scheduler) SpawnAgent(runID, parentAgentID string, node runstate.NodeConfig) {
	g, ok := s.Graphs.Get(runID)
	if !ok {
		return
	}
	run, ok := s.Runs.Get(runID)
	if !ok {
		return
	}
	req := DelegationRequest{Reason: "pattern-triggered spawn", Strategy: StrategySibling, NewNodes: []runstate.NodeConfig{node}}
	ok = s.Workflows.Mutate(runID, func(wf *runstate.WorkflowConfig) {
		if err := Splice(g, wf, run, parentAgentID, true, req); err != nil {
			s.Logger.Warn("pattern-triggered SpawnAgent failed", "run_id", runID, "error", err)
		}
	})
	if !ok {
		s.Logger.Warn("pattern-triggered SpawnAgent: workflow config missing", "run_id", runID)
	}
}

func (s *Scheduler) persist(runID string) {
	run, ok := s.Runs.Get(runID)
	if !ok {
		return
	}
	if err := s.Store.SaveState(context.Background(), run); err != nil {
		s.Logger.Warn("persistence: save_state failed", "run_id", runID, "error", err)
	}
}

func (s *Scheduler) publish(runID string, t bus.Type, agentID string, payload interface{}) {
	s.Bus.Publish(bus.New(runID, t, agentID, payload))
}

var errGraphMissing = fmt.Errorf("scheduler: graph not present in memory")

// ErrGraphMissing returns the sentinel Resume uses to signal a 404
// (the run's Graph is gone: either it never existed or the process
// restarted and lost it, per spec.md §4.2's "Graph is not persisted").
func ErrGraphMissing() error { return errGraphMissing }
