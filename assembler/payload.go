// Package assembler builds the per-invocation payload for one node
// (spec.md §4.5 Context Assembler): parent signature lookup, artifact
// fetch and prompt composition, file mount collection, the pre-flight
// context-drought check, tool provisioning, and graph-view rendering.
package assembler

import "encoding/json"

// Payload is everything the Remote Invoker sends to the worker for
// one node invocation (spec.md §4.5 item 9).
type Payload struct {
	RunID           string                     `json:"run_id"`
	AgentID         string                     `json:"agent_id"`
	Model           string                     `json:"model"`
	Prompt          string                     `json:"prompt"`
	Directive       string                     `json:"directive,omitempty"`
	InputData       map[string]json.RawMessage `json:"input_data"`
	ParentSignature string                     `json:"parent_signature,omitempty"`
	CachedContentID string                     `json:"cached_content_id,omitempty"`
	ThinkingLevel   int                        `json:"thinking_level,omitempty"`
	FilePaths       []string                   `json:"file_paths"`
	Tools           []string                   `json:"tools"`
	AllowDelegation bool                       `json:"allow_delegation"`
	GraphView       json.RawMessage            `json:"graph_view"`
}

// artifactOutput is the shape assembler reads back from an upstream
// dependency's stored artifact, per spec.md §4.5 item 2's "result or
// output string field".
type artifactOutput struct {
	Result         string   `json:"result"`
	Output         string   `json:"output"`
	FilesGenerated []string `json:"files_generated"`
}

// text returns the artifact's human-readable context text (spec.md
// §4.5 item 2): result, then output, then a fixed placeholder.
func (a artifactOutput) text() string {
	if a.Result != "" {
		return a.Result
	}
	if a.Output != "" {
		return a.Output
	}
	return "No text output"
}
