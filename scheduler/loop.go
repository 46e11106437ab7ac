package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/raro-dev/kernel/bus"
	"github.com/raro-dev/kernel/dag"
	"github.com/raro-dev/kernel/invoker"
	"github.com/raro-dev/kernel/runstate"
)

// Loop runs the scheduler's core loop for runID until the run leaves
// the running status (spec.md §4.6). It is the body of the "dedicated
// async task per run" (spec.md §5).
func (s *Scheduler) Loop(ctx context.Context, runID string) {
	for {
		if !s.iterate(ctx, runID) {
			return
		}
	}
}

// iterate runs exactly one loop iteration and reports whether the
// loop should continue.
func (s *Scheduler) iterate(ctx context.Context, runID string) bool {
	// 1. Status gate.
	run, ok := s.Runs.Get(runID)
	if !ok {
		return false
	}
	if run.Status == runstate.StatusAwaitingApproval || run.Status.Terminal() {
		return false
	}

	g, ok := s.Graphs.Get(runID)
	if !ok {
		return false
	}
	wf, ok := s.Workflows.Get(runID)
	if !ok {
		return false
	}

	// 2. Select next node.
	nodeID, found := s.selectReady(g, run)
	if !found {
		// 3. Quiescence check.
		if len(run.Active) > 0 {
			time.Sleep(quiescenceSleep)
			return true
		}
		s.Runs.Mutate(runID, func(r *runstate.RunState) {
			_ = r.SetStatus(runstate.StatusCompleted)
		})
		s.persist(runID)
		s.Invoker.Cleanup(runID)
		s.Budget.Forget(runID)
		s.refreshRunGauges()
		return false
	}

	node, ok := wf.NodeByID(nodeID)
	if !ok {
		return false
	}

	// 3.5 Token budget gate: a workflow with a positive TokenBudget that
	// has already consumed it pauses for operator review rather than
	// dispatching further nodes (original_source's max_token_budget,
	// left unenforced by the spec's distillation).
	if wf.TokenBudget > 0 && run.TotalTokens >= wf.TokenBudget {
		s.RequestApproval(runID, nodeID, fmt.Sprintf("token budget exhausted: %d/%d tokens used", run.TotalTokens, wf.TokenBudget))
		return false
	}

	// 4. Optional puppet mode.
	if s.Puppet != nil {
		s.Puppet.AwaitDecision(ctx, runID, nodeID, 60*time.Second)
		// Timeout or absent response both fall through to normal
		// dispatch (spec.md §4.6 item 4).
	}

	// 5. Mark active.
	s.Runs.Mutate(runID, func(r *runstate.RunState) {
		r.MarkActive(nodeID)
	})
	s.publish(runID, bus.AgentStarted, nodeID, nil)
	s.persist(runID)

	// 6. Assemble payload.
	run, _ = s.Runs.Get(runID)
	payload, err := s.Assembler.Assemble(ctx, g, wf, run, node)
	if err != nil {
		s.handleAssembleError(runID, nodeID, err)
		return true
	}

	// 7. Invoke worker, bounded by the workflow's configured timeout
	// when set (original_source's timeout_ms, left unenforced by the
	// spec's distillation).
	invokeCtx := ctx
	if wf.TimeoutMS > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, time.Duration(wf.TimeoutMS)*time.Millisecond)
		defer cancel()
	}
	dispatchedAt := time.Now()
	resp, err := s.Invoker.Invoke(invokeCtx, payload)
	if err != nil {
		s.Metrics.RecordInvocationLatency(runID, nodeID, "error", time.Since(dispatchedAt))
		s.FailRun(runID, nodeID, fmt.Sprintf("transport error: %v", err))
		return true
	}

	// 8. Result evaluation.
	sig := evaluateResult(nodeID, resp.Output)

	if resp.Success && !sig.semanticNull && !sig.protocolViolation {
		s.Metrics.RecordInvocationLatency(runID, nodeID, "success", time.Since(dispatchedAt))
		s.recordSuccess(ctx, runID, nodeID, node, g, resp)
		return true
	}

	// 10. Circuit breaker. The node is reverted out of Active (as the
	// context-drought path does) so that once the operator resumes the
	// run, selectReady treats it as pending again and re-dispatches it
	// instead of the loop quiescing on a node stuck in Active forever.
	reason := circuitBreakerReason(resp.Success, resp.Error, sig)
	s.Metrics.RecordInvocationLatency(runID, nodeID, "circuit_break", time.Since(dispatchedAt))
	s.Metrics.IncrementCircuitBreakerTrips(runID, reason)
	s.Runs.Mutate(runID, func(r *runstate.RunState) {
		r.RecordInvocation(runstate.Invocation{
			AgentID: nodeID, Status: runstate.InvocationFailed,
			ErrorMsg: reason, Tokens: resp.TokensUsed, Timestamp: time.Now().UTC(),
		})
		r.Active = removeActive(r.Active, nodeID)
	})
	s.RequestApproval(runID, nodeID, reason)
	s.publish(runID, bus.AgentFailed, nodeID, map[string]string{"reason": reason})
	return false
}

// handleAssembleError treats a context-drought abort as a pause, not
// a failure (spec.md §4.5 item 4): the node is reverted out of
// active so a resumed loop re-selects it once the operator has
// supplied more context, and the run pauses for approval.
func (s *Scheduler) handleAssembleError(runID, nodeID string, err error) {
	s.Runs.Mutate(runID, func(r *runstate.RunState) {
		r.Active = removeActive(r.Active, nodeID)
	})
	s.RequestApproval(runID, nodeID, fmt.Sprintf("context drought: %v", err))
}

func removeActive(xs []string, x string) []string {
	out := xs[:0:0]
	for _, v := range xs {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}

// selectReady computes a topological order and returns the first id
// not yet dispatched whose dependencies are all completed (spec.md
// §4.6 item 2: "This integrated check prevents head-of-line blocking
// on waiting nodes with ready siblings").
func (s *Scheduler) selectReady(g *dag.Graph, run *runstate.RunState) (string, bool) {
	order, err := g.TopologicalSort()
	if err != nil {
		return "", false
	}
	for _, id := range order {
		if !run.IsPendingNode(id) {
			continue
		}
		deps := g.Parents(id)
		allDone := true
		for _, dep := range deps {
			if !contains(run.Completed, dep) {
				allDone = false
				break
			}
		}
		if allDone {
			return id, true
		}
	}
	return "", false
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// circuitBreakerReason builds the human-readable reason text recorded
// against a tripped circuit breaker (spec.md §4.6 item 10). The
// "Protocol Violation" / "Semantic Null" casing matches spec.md §8
// scenario 5's literal assertion on the AgentFailed payload text.
func circuitBreakerReason(success bool, errMsg string, sig resultSignals) string {
	switch {
	case !success:
		return fmt.Sprintf("invocation failed: %s", errMsg)
	case sig.semanticNull:
		return "Semantic Null: no usable output to hand downstream"
	case sig.protocolViolation:
		return "Protocol Violation: expected tool evidence missing from output"
	default:
		return "unspecified circuit breaker condition"
	}
}

func (s *Scheduler) recordSuccess(ctx context.Context, runID, nodeID string, node runstate.NodeConfig, g *dag.Graph, resp *invoker.Response) {
	run, ok := s.Runs.Get(runID)
	if !ok {
		return
	}

	if resp.CachedContentID != "" {
		s.Runs.Mutate(runID, func(r *runstate.RunState) {
			r.CacheContent = resp.CachedContentID
		})
	}

	if resp.Delegation != nil && node.AllowDelegation {
		s.applyDelegation(runID, nodeID, node, g, run, resp)
	}

	if resp.ThoughtSignature != "" {
		s.Signatures.Set(runID, nodeID, resp.ThoughtSignature)
	}

	if !resp.ArtifactStored {
		data, err := json.Marshal(map[string]string{"result": resp.Output, "output": resp.Output})
		if err == nil {
			if saveErr := s.Store.SaveArtifact(ctx, runID, nodeID, data, artifactTTL); saveErr != nil {
				s.Logger.Warn("persistence: save_artifact failed", "run_id", runID, "agent_id", nodeID, "error", saveErr)
			}
		}
	}

	s.Runs.Mutate(runID, func(r *runstate.RunState) {
		r.RecordInvocation(runstate.Invocation{
			AgentID: nodeID, Status: runstate.InvocationSuccess,
			Tokens: resp.TokensUsed, LatencyMS: resp.LatencyMS, Timestamp: time.Now().UTC(),
		})
		r.MarkCompleted(nodeID)
	})
	s.Metrics.AddTokens(runID, resp.TokensUsed)
	cost := s.Budget.Record(runID, string(node.Model), resp.TokensUsed)
	s.Metrics.AddCost(runID, cost)
	s.persist(runID)
	s.publish(runID, bus.AgentCompleted, nodeID, map[string]interface{}{"tokens_used": resp.TokensUsed})
}

func (s *Scheduler) applyDelegation(runID, nodeID string, node runstate.NodeConfig, g *dag.Graph, run *runstate.RunState, resp *invoker.Response) {
	newNodes := make([]runstate.NodeConfig, 0, len(resp.Delegation.NewNodes))
	for _, raw := range resp.Delegation.NewNodes {
		var n runstate.NodeConfig
		if err := json.Unmarshal(raw, &n); err == nil {
			newNodes = append(newNodes, n)
		}
	}
	req := DelegationRequest{
		Reason:   resp.Delegation.Reason,
		Strategy: Strategy(resp.Delegation.Strategy),
		NewNodes: newNodes,
	}
	if req.Strategy == "" {
		req.Strategy = StrategyChild
	}
	var spliceErr error
	s.Workflows.Mutate(runID, func(mutableWF *runstate.WorkflowConfig) {
		spliceErr = Splice(g, mutableWF, run, nodeID, node.AllowDelegation, req)
	})
	if spliceErr != nil {
		if !strings.Contains(spliceErr.Error(), "delegation dropped") {
			s.Logger.Error("delegation splice failed", "run_id", runID, "agent_id", nodeID, "error", spliceErr)
			s.FailRun(runID, nodeID, fmt.Sprintf("delegation splice failed: %v", spliceErr))
		}
		return
	}
	s.Metrics.IncrementDelegationSplices(runID, string(req.Strategy))
}
