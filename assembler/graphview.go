package assembler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raro-dev/kernel/dag"
	"github.com/raro-dev/kernel/runstate"
)

// nodeStatus is the per-node status tag used in graph-view rendering
// (spec.md §4.5 item 8: "COMPLETE/RUNNING/PENDING/FAILED").
type nodeStatus string

const (
	statusComplete nodeStatus = "COMPLETE"
	statusRunning  nodeStatus = "RUNNING"
	statusPending  nodeStatus = "PENDING"
	statusFailed   nodeStatus = "FAILED"
)

func classify(run *runstate.RunState, id string) nodeStatus {
	switch {
	case contains(run.Completed, id):
		return statusComplete
	case contains(run.Active, id):
		return statusRunning
	case contains(run.Failed, id):
		return statusFailed
	default:
		return statusPending
	}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// detailedNode is one entry of the detailed JSON graph view emitted
// for delegation-capable nodes.
type detailedNode struct {
	ID               string     `json:"id"`
	Status           nodeStatus `json:"status"`
	DependsOn        []string   `json:"depends_on"`
	You              bool       `json:"you,omitempty"`
	SpecialtyPreview string     `json:"specialty_preview,omitempty"`
}

// RenderGraphView builds the textual or structured topology view
// handed to the target node (spec.md §4.5 item 8). detailed controls
// the format: true emits structured JSON (for allow_delegation
// nodes), false emits a compact "a -> b -> c" linear string.
func RenderGraphView(g *dag.Graph, wf *runstate.WorkflowConfig, run *runstate.RunState, targetID string, detailed bool) json.RawMessage {
	order, err := g.TopologicalSort()
	if err != nil {
		order = g.ExportNodes()
	}

	if !detailed {
		labeled := make([]string, len(order))
		for i, id := range order {
			labeled[i] = MarkTarget(id, targetID)
		}
		return json.RawMessage(`"` + strings.Join(labeled, " -> ") + `"`)
	}

	nodes := make([]detailedNode, 0, len(order))
	for _, id := range order {
		n := detailedNode{
			ID:        id,
			Status:    classify(run, id),
			DependsOn: g.Parents(id),
			You:       id == targetID,
		}
		if n.Status == statusPending {
			if cfg, ok := wf.NodeByID(id); ok {
				n.SpecialtyPreview = preview(cfg.Prompt, 50)
			}
		}
		nodes = append(nodes, n)
	}

	out, err := json.Marshal(nodes)
	if err != nil {
		return json.RawMessage(`[]`)
	}
	return out
}

// preview truncates s to at most n runes, for the "specialty preview"
// a delegating orchestrator uses to reason about adoption vs.
// replacement (spec.md §4.5 item 8).
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// MarkTarget renders a human label for id, appending "(YOU)" when it
// is targetID. RenderGraphView's compact (non-detailed) string uses
// it; the detailed view marks the target with its `you` field instead.
func MarkTarget(id, targetID string) string {
	if id == targetID {
		return fmt.Sprintf("%s (YOU)", id)
	}
	return id
}
