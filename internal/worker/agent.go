// Package worker implements a reference external worker for the
// Kernel: it receives an assembler.Payload over /invoke, resolves the
// node's model tier to a ChatModel, runs a bounded tool-calling loop,
// and returns the invoker.Response the scheduler evaluates.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/raro-dev/kernel/assembler"
	"github.com/raro-dev/kernel/internal/worker/model"
	"github.com/raro-dev/kernel/internal/worker/tool"
	"github.com/raro-dev/kernel/invoker"
)

// Models bundles the three tier-mapped ChatModels a node's opaque
// model string (spec.md §4.5 item 6) resolves to.
type Models struct {
	Fast      model.ChatModel
	Reasoning model.ChatModel
	Thinking  model.ChatModel
}

func (m Models) resolve(modelString string) model.ChatModel {
	switch modelString {
	case "fast-tier":
		return m.Fast
	case "thinking-tier":
		return m.Thinking
	case "reasoning-tier":
		return m.Reasoning
	default:
		// A custom per-node model string (runstate.TierCustom) has no
		// opaque mapping; the reasoning model is the closest general
		// default.
		return m.Reasoning
	}
}

// Agent runs one node invocation end to end.
type Agent struct {
	Models        Models
	SessionRoot   string
	SearchBaseURL string
	PythonBin     string
	MaxToolTurns  int
}

// New returns an Agent. sessionRoot is the filesystem root mounted
// files resolve under (shared with the Kernel's workspace.Manager
// root); searchBaseURL/pythonBin configure the web_search and
// execute_python tools.
func New(models Models, sessionRoot, searchBaseURL, pythonBin string) *Agent {
	return &Agent{
		Models:        models,
		SessionRoot:   sessionRoot,
		SearchBaseURL: searchBaseURL,
		PythonBin:     pythonBin,
		MaxToolTurns:  4,
	}
}

// Invoke drives the chat/tool loop for payload and returns the wire
// response. It never returns a transport error for model/tool
// failures — those are reported as Success:false so the scheduler's
// circuit breaker sees them as a normal failed invocation rather than
// a connection fault (spec.md §4.6 item 9).
func (a *Agent) Invoke(ctx context.Context, payload *assembler.Payload) *invoker.Response {
	chatModel := a.Models.resolve(payload.Model)
	if chatModel == nil {
		return &invoker.Response{AgentID: payload.AgentID, Success: false, Error: fmt.Sprintf("no chat model configured for %q", payload.Model)}
	}

	sessionDir := filepath.Join(a.SessionRoot, payload.RunID)
	registry := tool.NewRegistry(sessionDir, a.SearchBaseURL, a.PythonBin)
	tools := registry.Build(payload.Tools)

	toolSpecs := make([]model.ToolSpec, len(tools))
	toolsByName := make(map[string]tool.Tool, len(tools))
	for i, t := range tools {
		toolSpecs[i] = model.ToolSpec{Name: t.Name()}
		toolsByName[t.Name()] = t
	}

	messages := []model.Message{{Role: model.RoleUser, Content: payload.Prompt}}

	var transcript strings.Builder
	var totalTokens int

	for turn := 0; turn < a.MaxToolTurns; turn++ {
		out, err := chatModel.Chat(ctx, messages, toolSpecs)
		if err != nil {
			return &invoker.Response{AgentID: payload.AgentID, Success: false, Error: err.Error()}
		}
		totalTokens += estimateTokens(out.Text)

		if out.Text != "" {
			if transcript.Len() > 0 {
				transcript.WriteString("\n")
			}
			transcript.WriteString(out.Text)
		}

		if len(out.ToolCalls) == 0 {
			return &invoker.Response{
				AgentID:    payload.AgentID,
				Success:    true,
				Output:     transcript.String(),
				TokensUsed: totalTokens,
			}
		}

		messages = append(messages, model.Message{Role: model.RoleAssistant, Content: out.Text})
		for _, call := range out.ToolCalls {
			messages = append(messages, a.runToolCall(ctx, toolsByName, call, &transcript))
		}
	}

	return &invoker.Response{
		AgentID:    payload.AgentID,
		Success:    true,
		Output:     transcript.String(),
		TokensUsed: totalTokens,
	}
}

// runToolCall executes one model-issued tool call, appending a
// "[TOOL: name]" marker the scheduler's protocol check looks for
// (spec.md §4.6 item 8), and returns the message to feed back to the
// model with the tool's result.
func (a *Agent) runToolCall(ctx context.Context, toolsByName map[string]tool.Tool, call model.ToolCall, transcript *strings.Builder) model.Message {
	t, ok := toolsByName[call.Name]
	if !ok {
		fmt.Fprintf(transcript, "\n[TOOL ERROR: %s not provisioned]", call.Name)
		return model.Message{Role: model.RoleUser, Content: fmt.Sprintf("tool %s is not available", call.Name)}
	}

	result, err := t.Call(ctx, call.Input)
	fmt.Fprintf(transcript, "\n[TOOL: %s]", call.Name)
	if err != nil {
		return model.Message{Role: model.RoleUser, Content: fmt.Sprintf("tool %s failed: %s", call.Name, err.Error())}
	}

	resultJSON, _ := json.Marshal(result)
	return model.Message{Role: model.RoleUser, Content: fmt.Sprintf("tool %s result: %s", call.Name, resultJSON)}
}

// estimateTokens is a rough token count for providers that don't
// surface usage uniformly through model.ChatOut.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}
