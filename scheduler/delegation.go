package scheduler

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/raro-dev/kernel/dag"
	"github.com/raro-dev/kernel/runstate"
)

// Strategy controls how a delegation's new nodes attach to the
// existing graph (spec.md §4.7).
type Strategy string

const (
	StrategyChild   Strategy = "Child"
	StrategySibling Strategy = "Sibling"
)

// DelegationRequest is a successful response's request to splice new
// nodes into the run's graph (spec.md §4.7).
type DelegationRequest struct {
	Reason   string
	Strategy Strategy
	NewNodes []runstate.NodeConfig
}

// errDelegationDropped is a sentinel the scheduler checks for to
// distinguish "permission gate closed, proceed as normal success"
// from a real splicing failure.
type errDelegationDropped struct{ reason string }

func (e *errDelegationDropped) Error() string { return "scheduler: delegation dropped: " + e.reason }

// Splice applies req to g and wf on behalf of parentID, in this order:
// read parent's current children and all node ids, resolve id
// collisions and build the substitution map, rewrite the workflow
// config, then mutate the graph, then validate with a topological sort
// (fatal, no rollback, on cycle). Splice itself takes only the graph's
// lock; the callers in this package run it inside
// WorkflowRegistry.Mutate, so the workflow registry's lock is held
// while the graph lock is taken.
//
// Returns *errDelegationDropped if parentAllowDelegation is false
// (permission gate, spec.md §4.7 "Permission gate").
func Splice(g *dag.Graph, wf *runstate.WorkflowConfig, run *runstate.RunState, parentID string, parentAllowDelegation bool, req DelegationRequest) error {
	if !parentAllowDelegation {
		return &errDelegationDropped{reason: "parent node does not allow delegation"}
	}

	// Step 1: read parent's current children and all node ids, each
	// under its own short read lock, released before further work.
	children := g.Children(parentID)
	allIDs := make(map[string]bool)
	for _, id := range g.ExportNodes() {
		allIDs[id] = true
	}

	// Step 2: resolve id collisions, build substitution map, rewrite
	// new nodes' DependsOn through it.
	substitution := make(map[string]string)
	finalNodes := make([]runstate.NodeConfig, 0, len(req.NewNodes))
	var staleNodesToClear []string // pending-node collisions: clear their incoming edges

	for _, n := range req.NewNodes {
		newID := n.ID
		if allIDs[n.ID] {
			if run.IsPendingNode(n.ID) {
				// Pending-node update: same id, new config, incoming edges cleared.
				staleNodesToClear = append(staleNodesToClear, n.ID)
			} else {
				// Active/completed/failed: rename to avoid corrupting history.
				newID = fmt.Sprintf("%s_%s", n.ID, shortUUID())
				substitution[n.ID] = newID
			}
		}
		n.ID = newID
		finalNodes = append(finalNodes, n)
		allIDs[newID] = true
	}
	for i := range finalNodes {
		remapped := make([]string, len(finalNodes[i].DependsOn))
		for j, dep := range finalNodes[i].DependsOn {
			if sub, ok := substitution[dep]; ok {
				remapped[j] = sub
			} else {
				remapped[j] = dep
			}
		}
		finalNodes[i].DependsOn = remapped
	}

	// Step 3: under the workflow config — append new node configs;
	// rewrite each old dependent's DependsOn to replace parentID with
	// the new node ids (Child strategy only).
	newIDs := make([]string, len(finalNodes))
	for i, n := range finalNodes {
		newIDs[i] = n.ID
		wf.ReplaceNode(n)
	}
	if req.Strategy == StrategyChild {
		for _, childID := range children {
			cfg, ok := wf.NodeByID(childID)
			if !ok {
				continue
			}
			cfg.DependsOn = replaceDep(cfg.DependsOn, parentID, newIDs)
			wf.ReplaceNode(cfg)
		}
	}

	// Step 4: under the graph — add new nodes; add each new node's
	// declared-dependency edges; ensure parent linkage; Child strategy
	// only: link new nodes to existing dependents and drop the direct
	// parent->child edges.
	var spliceErr error
	g.WithLock(func(tx *dag.Tx) {
		for _, id := range staleNodesToClear {
			tx.ClearIncomingEdges(id)
		}
		for _, n := range finalNodes {
			if !tx.HasNode(n.ID) {
				tx.AddNode(n.ID)
			}
		}
		for _, n := range finalNodes {
			linked := false
			for _, dep := range n.DependsOn {
				if err := tx.AddEdge(dep, n.ID); err != nil {
					spliceErr = err
					return
				}
				if dep == parentID {
					linked = true
				}
			}
			if len(n.DependsOn) == 0 || (!linked && !containsStr(n.DependsOn, parentID)) {
				if err := tx.AddEdge(parentID, n.ID); err != nil {
					spliceErr = err
					return
				}
			}
		}
		if req.Strategy == StrategyChild {
			for _, n := range finalNodes {
				for _, childID := range children {
					if err := tx.AddEdge(n.ID, childID); err != nil {
						spliceErr = err
						return
					}
				}
			}
			for _, childID := range children {
				_ = tx.RemoveEdge(parentID, childID)
			}
		}
	})
	if spliceErr != nil {
		return fmt.Errorf("scheduler: delegation splice mutation: %w", spliceErr)
	}

	// Step 5: validate.
	if _, err := g.TopologicalSort(); err != nil {
		return fmt.Errorf("scheduler: delegation splice produced invalid graph: %w", err)
	}
	return nil
}

func replaceDep(deps []string, old string, replacements []string) []string {
	out := make([]string, 0, len(deps)+len(replacements))
	for _, d := range deps {
		if d == old {
			out = append(out, replacements...)
			continue
		}
		out = append(out, d)
	}
	return out
}

func containsStr(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func shortUUID() string {
	id := uuid.NewString()
	return id[:8]
}
