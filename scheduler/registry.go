package scheduler

import (
	"sync"

	"github.com/raro-dev/kernel/dag"
	"github.com/raro-dev/kernel/runstate"
)

// GraphRegistry is the concurrent map of run id to in-memory Graph
// (spec.md §5 "graph store... each a concurrent map keyed by run
// id"). The Graph is never persisted (spec.md §4.2 rehydration
// rationale: "the in-memory Graph is not persisted"), so its presence
// here is exactly the test `resume` uses to tell a truly-dead run
// from one merely paused.
type GraphRegistry struct {
	mu   sync.RWMutex
	data map[string]*dag.Graph
}

// NewGraphRegistry returns an empty GraphRegistry.
func NewGraphRegistry() *GraphRegistry {
	return &GraphRegistry{data: make(map[string]*dag.Graph)}
}

// Set registers g for runID.
func (r *GraphRegistry) Set(runID string, g *dag.Graph) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[runID] = g
}

// Get returns the Graph for runID, or ok=false if none is in memory.
func (r *GraphRegistry) Get(runID string) (*dag.Graph, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.data[runID]
	return g, ok
}

// Delete removes runID's Graph.
func (r *GraphRegistry) Delete(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, runID)
}

// WorkflowRegistry is the concurrent map of run id to the workflow
// config that produced it, mutated in place by delegation splicing.
type WorkflowRegistry struct {
	mu   sync.RWMutex
	data map[string]*runstate.WorkflowConfig
}

// NewWorkflowRegistry returns an empty WorkflowRegistry.
func NewWorkflowRegistry() *WorkflowRegistry {
	return &WorkflowRegistry{data: make(map[string]*runstate.WorkflowConfig)}
}

// Set registers wf for runID.
func (r *WorkflowRegistry) Set(runID string, wf *runstate.WorkflowConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[runID] = wf
}

// Get returns the live WorkflowConfig pointer for runID. Callers that
// mutate it (delegation splicing) must use Mutate instead of Get plus
// an external write, to stay inside the registry's lock.
func (r *WorkflowRegistry) Get(runID string) (*runstate.WorkflowConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wf, ok := r.data[runID]
	return wf, ok
}

// Mutate runs fn with exclusive access to runID's WorkflowConfig.
func (r *WorkflowRegistry) Mutate(runID string, fn func(wf *runstate.WorkflowConfig)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	wf, ok := r.data[runID]
	if !ok {
		return false
	}
	fn(wf)
	return true
}
