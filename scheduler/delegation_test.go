package scheduler

import (
	"testing"

	"github.com/raro-dev/kernel/dag"
	"github.com/raro-dev/kernel/runstate"
)

func buildGraph(t *testing.T, wf *runstate.WorkflowConfig) *dag.Graph {
	t.Helper()
	g := dag.New()
	for _, n := range wf.Nodes {
		g.AddNode(n.ID)
	}
	for _, n := range wf.Nodes {
		for _, dep := range n.DependsOn {
			if err := g.AddEdge(dep, n.ID); err != nil {
				t.Fatalf("AddEdge(%s,%s): %v", dep, n.ID, err)
			}
		}
	}
	return g
}

func TestSplice_PermissionGateDropsDelegation(t *testing.T) {
	wf := &runstate.WorkflowConfig{Nodes: []runstate.NodeConfig{{ID: "p"}}}
	g := buildGraph(t, wf)
	run := runstate.New("r1", "wf1")

	err := Splice(g, wf, run, "p", false, DelegationRequest{NewNodes: []runstate.NodeConfig{{ID: "child"}}})
	if err == nil {
		t.Fatal("expected delegation-dropped error")
	}
	if g.HasNode("child") {
		t.Fatal("node should not have been added when permission gate is closed")
	}
}

func TestSplice_ChildStrategyRewiresExistingDependents(t *testing.T) {
	wf := &runstate.WorkflowConfig{Nodes: []runstate.NodeConfig{
		{ID: "p"},
		{ID: "c", DependsOn: []string{"p"}},
	}}
	g := buildGraph(t, wf)
	run := runstate.New("r1", "wf1")

	req := DelegationRequest{Strategy: StrategyChild, NewNodes: []runstate.NodeConfig{{ID: "new1", DependsOn: []string{"p"}}}}
	if err := Splice(g, wf, run, "p", true, req); err != nil {
		t.Fatalf("Splice: %v", err)
	}

	if !g.HasNode("new1") {
		t.Fatal("new1 should have been added")
	}
	if containsStr(g.Parents("c"), "p") {
		t.Fatal("p->c edge should have been removed under Child strategy")
	}
	if !containsStr(g.Parents("c"), "new1") {
		t.Fatal("new1->c edge should have been added under Child strategy")
	}
	if _, ok := wf.NodeByID("new1"); !ok {
		t.Fatal("new1 should be present in workflow config")
	}
}

// TestSplice_ChildStrategyWithChainedNewNodesWiresAllToEachDependent
// pins the chosen reading of spec.md §4.7's literal per-step mutation
// order for a multi-new-node delegation: new_nodes:[x, y<-x] under
// Child strategy. Step 3 rewrites c's depends_on by replacing p with
// every new id (x and y, not just the chain's sink y), and step 4
// adds an edge from every new node to c and removes p->c. The result
// is c depending on both x and y, not only on the chain's tail.
func TestSplice_ChildStrategyWithChainedNewNodesWiresAllToEachDependent(t *testing.T) {
	wf := &runstate.WorkflowConfig{Nodes: []runstate.NodeConfig{
		{ID: "p"},
		{ID: "c", DependsOn: []string{"p"}},
	}}
	g := buildGraph(t, wf)
	run := runstate.New("r1", "wf1")

	req := DelegationRequest{Strategy: StrategyChild, NewNodes: []runstate.NodeConfig{
		{ID: "x", DependsOn: []string{"p"}},
		{ID: "y", DependsOn: []string{"x"}},
	}}
	if err := Splice(g, wf, run, "p", true, req); err != nil {
		t.Fatalf("Splice: %v", err)
	}

	if containsStr(g.Parents("c"), "p") {
		t.Fatal("p->c edge should have been removed under Child strategy")
	}
	if !containsStr(g.Parents("c"), "x") || !containsStr(g.Parents("c"), "y") {
		t.Fatalf("expected c to depend on every new node, got parents %v", g.Parents("c"))
	}

	cfg, ok := wf.NodeByID("c")
	if !ok {
		t.Fatal("c should still be present in workflow config")
	}
	if !containsStr(cfg.DependsOn, "x") || !containsStr(cfg.DependsOn, "y") {
		t.Fatalf("expected c.depends_on to list every new node, got %v", cfg.DependsOn)
	}
}

func TestSplice_SiblingStrategyLeavesExistingDependentsAlone(t *testing.T) {
	wf := &runstate.WorkflowConfig{Nodes: []runstate.NodeConfig{
		{ID: "p"},
		{ID: "c", DependsOn: []string{"p"}},
	}}
	g := buildGraph(t, wf)
	run := runstate.New("r1", "wf1")

	req := DelegationRequest{Strategy: StrategySibling, NewNodes: []runstate.NodeConfig{{ID: "new1", DependsOn: []string{"p"}}}}
	if err := Splice(g, wf, run, "p", true, req); err != nil {
		t.Fatalf("Splice: %v", err)
	}

	if !containsStr(g.Parents("c"), "p") {
		t.Fatal("p->c edge should remain under Sibling strategy")
	}
	if containsStr(g.Parents("c"), "new1") {
		t.Fatal("new1 should not be wired to c under Sibling strategy")
	}
}

func TestSplice_CollisionWithPendingNodeReplacesInPlace(t *testing.T) {
	wf := &runstate.WorkflowConfig{Nodes: []runstate.NodeConfig{
		{ID: "p"},
		{ID: "other"},
		{ID: "dup", DependsOn: []string{"other"}},
	}}
	g := buildGraph(t, wf)
	run := runstate.New("r1", "wf1")

	req := DelegationRequest{Strategy: StrategySibling, NewNodes: []runstate.NodeConfig{{ID: "dup", DependsOn: []string{"p"}}}}
	if err := Splice(g, wf, run, "p", true, req); err != nil {
		t.Fatalf("Splice: %v", err)
	}

	if containsStr(g.Parents("dup"), "other") {
		t.Fatal("incoming edges on the stale pending node should have been cleared")
	}
	if !containsStr(g.Parents("dup"), "p") {
		t.Fatal("dup should now depend on p per the new config")
	}
	cfg, ok := wf.NodeByID("dup")
	if !ok || len(cfg.DependsOn) != 1 || cfg.DependsOn[0] != "p" {
		t.Fatalf("expected workflow config for dup to be replaced, got %+v", cfg)
	}
}

func TestSplice_CollisionWithCompletedNodeRenames(t *testing.T) {
	wf := &runstate.WorkflowConfig{Nodes: []runstate.NodeConfig{
		{ID: "p"},
		{ID: "dup"},
	}}
	g := buildGraph(t, wf)
	run := runstate.New("r1", "wf1")
	run.MarkActive("dup")
	run.MarkCompleted("dup")

	req := DelegationRequest{Strategy: StrategySibling, NewNodes: []runstate.NodeConfig{{ID: "dup"}}}
	if err := Splice(g, wf, run, "p", true, req); err != nil {
		t.Fatalf("Splice: %v", err)
	}

	found := false
	for _, id := range g.ExportNodes() {
		if id != "dup" && id != "p" {
			found = true
			if !containsStr(g.Parents(id), "p") {
				t.Fatalf("renamed node %s should be linked to parent p", id)
			}
		}
	}
	if !found {
		t.Fatal("expected a renamed node distinct from the completed dup")
	}
}

func TestSplice_CycleProducingRequestIsRejected(t *testing.T) {
	wf := &runstate.WorkflowConfig{Nodes: []runstate.NodeConfig{
		{ID: "p"},
		{ID: "c", DependsOn: []string{"p"}},
	}}
	g := buildGraph(t, wf)
	run := runstate.New("r1", "wf1")

	// new1 declares a dependency on c, an existing child of p, which
	// adds the edge c -> new1. Under Child strategy the splice also
	// wires new1 -> c, which would close a cycle; the graph's AddEdge
	// cycle check rejects that edge and Splice returns an error.
	req := DelegationRequest{Strategy: StrategyChild, NewNodes: []runstate.NodeConfig{{ID: "new1", DependsOn: []string{"c"}}}}
	if err := Splice(g, wf, run, "p", true, req); err == nil {
		t.Fatal("expected splice producing a cycle to be rejected")
	}
}
