// Package model defines the provider-agnostic chat interface the
// worker's agent loop drives, plus the Message/Tool wire shapes every
// provider adapter converts to and from.
package model

import "context"

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a chat transcript.
type Message struct {
	Role    Role
	Content string
}

// ToolSpec describes one tool a model may call, in JSON-schema form.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// ToolCall is a model-issued request to invoke a tool by name.
type ToolCall struct {
	Name  string
	Input map[string]interface{}
}

// ChatOut is a model's reply: free text, and/or tool calls to run
// before the agent loop continues.
type ChatOut struct {
	Text      string
	ToolCalls []ToolCall
}

// ChatModel is implemented by every provider adapter (anthropic,
// openai, google) and by MockChatModel for tests.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}
