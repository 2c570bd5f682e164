// Package llmadapter normalizes provider request/response shapes
// (Anthropic-style content blocks, OpenAI-style choices/tool_calls) into
// one common surface the Agent Executor can drive without ever branching
// on which provider produced a response (spec.md §4.E, §9 "Provider
// polymorphism").
package llmadapter

import "context"

// ToolDefinition describes one tool made available to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolChoice constrains how the model may pick tools. Mode is one of "auto",
// "any", "tool" (pick Name specifically), or "none".
type ToolChoice struct {
	Mode string
	Name string
}

// ToolCall is one invocation the model asked for.
type ToolCall struct {
	ID             string
	Name           string
	Input          map[string]any
	ServerExecuted bool // the provider already ran this tool itself
}

// ToolResult is a server-executed tool's outcome, surfaced in the same
// response that requested it.
type ToolResult struct {
	Content string
	IsError bool
}

// Request is a provider-agnostic chat request.
type Request struct {
	Messages    []Message
	ClientTools []ToolDefinition
	ServerTools []ToolDefinition
	ToolChoice  *ToolChoice
	Model       string
	MaxTokens   int // defaults to 4096 per spec.md §6
	Temperature float64
}

// Message is one conversational turn. Content is either a plain string or
// a []ContentBlock for assistant tool-use / user tool-result turns.
type Message struct {
	Role    string
	Content any
}

// ContentBlock mirrors store.ContentBlock; kept as a distinct type so this
// package has no dependency on the Store's persistence shape, only on the
// wire shape spec.md §3 names.
type ContentBlock struct {
	Type string

	Text string

	ID    string
	Name  string
	Input map[string]any

	ToolUseID string
	Content   string
	IsError   bool
}

// NormalizedResponse is the one common surface every adapter produces.
type NormalizedResponse struct {
	TextContent string
	ToolCalls   []ToolCall
	ToolResults map[string]ToolResult // keyed by tool-use id
	StatusCode  int                    // 0 when not HTTP-backed (e.g. fake client)
}

// Client is the normalized provider surface the Agent Executor calls.
type Client interface {
	Invoke(ctx context.Context, req Request) (*NormalizedResponse, error)
	Name() string
}

// StatusError carries an HTTP-ish status code alongside a message, so the
// Agent Executor's retry policy (spec.md §4.D) can classify it without
// string-sniffing when a status is available.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string { return e.Message }
