package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raro-dev/kernel/dag"
	"github.com/raro-dev/kernel/runstate"
	"github.com/raro-dev/kernel/store"
	"github.com/raro-dev/kernel/workspace"
)

// modelTierStrings maps the abstract ModelTier to the opaque model
// string the worker understands (spec.md §4.5 item 6). Custom tiers
// pass their node's Model value through as-is (there is no opaque
// mapping to apply).
var modelTierStrings = map[runstate.ModelTier]string{
	runstate.TierFast:      "fast-tier",
	runstate.TierReasoning: "reasoning-tier",
	runstate.TierThinking:  "thinking-tier",
}

// thinkingLevelForTier is the fixed constant used when a node
// declares the "thinking" tier (spec.md §4.5 item 6: "thinking sets a
// thinking_level=5"; value confirmed against the original runtime's
// per-tier constant for its deep-think tier).
const thinkingLevelForTier = 5

// Assembler builds Payloads. It reads artifacts and signatures
// through the supplied Store/SignatureStore and mounts files through
// the supplied workspace.Manager.
type Assembler struct {
	Store      store.Store
	Signatures *runstate.SignatureStore
	Workspace  *workspace.Manager
}

// New returns an Assembler.
func New(st store.Store, sigs *runstate.SignatureStore, ws *workspace.Manager) *Assembler {
	return &Assembler{Store: st, Signatures: sigs, Workspace: ws}
}

// Assemble builds the invocation Payload for node within run, against
// the current graph topology g. Returns *ErrContextDrought if the
// pre-flight drought check fails; the scheduler must treat that as a
// pause, not a failure (spec.md §4.5 item 4).
func (a *Assembler) Assemble(ctx context.Context, g *dag.Graph, wf *runstate.WorkflowConfig, run *runstate.RunState, node runstate.NodeConfig) (*Payload, error) {
	inputData := make(map[string]json.RawMessage)
	var contextTexts []string
	var mountedFiles []string
	var promptBuilder strings.Builder
	promptBuilder.WriteString(node.Prompt)

	for _, dep := range node.DependsOn {
		raw, err := a.Store.LoadArtifact(ctx, run.RunID, dep)
		if err != nil {
			continue // missing/expired artifact: simply contributes nothing
		}
		inputData[dep] = json.RawMessage(raw)

		var out artifactOutput
		if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
			text := out.text()
			contextTexts = append(contextTexts, text)
			fmt.Fprintf(&promptBuilder, "\n=== CONTEXT FROM AGENT %s ===\n%s\n", dep, text)

			for _, fname := range out.FilesGenerated {
				path, mountErr := a.Workspace.MountPath(run.RunID, fname)
				if mountErr != nil {
					continue
				}
				mountedFiles = appendDeduped(mountedFiles, path)
			}
		}
	}

	if IsDrought(len(node.DependsOn) > 0, contextTexts, mountedFiles) {
		return nil, &ErrContextDrought{AgentID: node.ID}
	}

	signature, _ := a.Signatures.FirstNonEmpty(run.RunID, node.DependsOn)

	modelString := string(node.Model)
	thinkingLevel := 0
	if mapped, ok := modelTierStrings[node.Model]; ok {
		modelString = mapped
	}
	if node.Model == runstate.TierThinking {
		thinkingLevel = thinkingLevelForTier
	}

	tools := ProvisionTools(node.ID, node.Tools, len(mountedFiles) > 0)

	graphView := RenderGraphView(g, wf, run, node.ID, node.AllowDelegation)

	return &Payload{
		RunID:           run.RunID,
		AgentID:         node.ID,
		Model:           modelString,
		Prompt:          promptBuilder.String(),
		Directive:       node.Directive,
		InputData:       inputData,
		ParentSignature: signature,
		CachedContentID: run.CacheContent,
		ThinkingLevel:   thinkingLevel,
		FilePaths:       mountedFiles,
		Tools:           tools,
		AllowDelegation: node.AllowDelegation,
		GraphView:       graphView,
	}, nil
}

func appendDeduped(xs []string, x string) []string {
	for _, v := range xs {
		if v == x {
			return xs
		}
	}
	return append(xs, x)
}
