package runstate

// Role is a node's function within a workflow.
type Role string

const (
	RoleOrchestrator Role = "orchestrator"
	RoleWorker       Role = "worker"
	RoleObserver     Role = "observer"
)

// ModelTier is the abstract capability level declared on a node; the
// Context Assembler maps it to an opaque model string (spec.md §4.5
// item 6).
type ModelTier string

const (
	TierFast      ModelTier = "fast"
	TierReasoning ModelTier = "reasoning"
	TierThinking  ModelTier = "thinking"
	TierCustom    ModelTier = "custom"
)

// Position is an optional operator-supplied UI coordinate, carried
// through unchanged for front-end rendering. Never inspected by the
// scheduler or assembler.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeConfig describes one node of a workflow (spec.md §3 Node id).
type NodeConfig struct {
	ID              string    `json:"id"`
	Role            Role      `json:"role"`
	Model           ModelTier `json:"model"`
	Prompt          string    `json:"prompt"`
	Tools           []string  `json:"tools"`
	DependsOn       []string  `json:"depends_on"`
	AllowDelegation bool      `json:"allow_delegation"`
	Directive       string    `json:"directive,omitempty"`
	Position        *Position `json:"position,omitempty"`
}

// WorkflowConfig is an identified set of nodes plus run-wide limits
// (spec.md §3 Workflow config).
type WorkflowConfig struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Nodes          []NodeConfig `json:"nodes"`
	TokenBudget    int          `json:"token_budget"`
	TimeoutMS      int64        `json:"timeout_ms"`
	LibraryFiles   []string     `json:"library_files,omitempty"`
}

// NodeByID finds the node with the given id, or reports ok=false.
func (w *WorkflowConfig) NodeByID(id string) (NodeConfig, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeConfig{}, false
}

// ReplaceNode overwrites the config for an existing node id, or appends
// it if not present. Used by delegation splicing (new nodes) and by
// pending-node id-collision "update" handling.
func (w *WorkflowConfig) ReplaceNode(n NodeConfig) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == n.ID {
			w.Nodes[i] = n
			return
		}
	}
	w.Nodes = append(w.Nodes, n)
}

// RemoveNode deletes the node with the given id, if present.
func (w *WorkflowConfig) RemoveNode(id string) {
	out := w.Nodes[:0:0]
	for _, n := range w.Nodes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	w.Nodes = out
}
