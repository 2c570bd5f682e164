package llmadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicAPIBase    = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
)

// AnthropicAdapter implements Client over the Anthropic Messages API via a
// hand-rolled net/http client — the teacher's own approach in
// internal/providers/anthropic.go; no provider SDK appears anywhere in
// this corpus's dependency graph.
type AnthropicAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewAnthropicAdapter(apiKey string) *AnthropicAdapter {
	return &AnthropicAdapter{
		apiKey:  apiKey,
		baseURL: anthropicAPIBase,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (a *AnthropicAdapter) Name() string { return "anthropic" }

type anthropicContentBlock struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Input   json.RawMessage `json:"input,omitempty"`
	Content string          `json:"content,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
}

func (a *AnthropicAdapter) Invoke(ctx context.Context, req Request) (*NormalizedResponse, error) {
	var system string
	msgs := make([]anthropicMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			if s, ok := m.Content.(string); ok {
				system = s
			}
			continue
		}
		msgs = append(msgs, anthropicMessage{Role: m.Role, Content: toAnthropicBlocks(m.Content)})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body := anthropicRequest{
		Model:     req.Model,
		Messages:  msgs,
		System:    system,
		MaxTokens: maxTokens,
	}
	for _, t := range req.ClientTools {
		body.Tools = append(body.Tools, anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("anthropic: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}

	out := &NormalizedResponse{ToolResults: map[string]ToolResult{}, StatusCode: resp.StatusCode}
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			out.TextContent += block.Text
		case "tool_use":
			var input map[string]any
			_ = json.Unmarshal(block.Input, &input)
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Input: input})
		case "server_tool_use":
			var input map[string]any
			_ = json.Unmarshal(block.Input, &input)
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Input: input, ServerExecuted: true})
		case "web_search_tool_result":
			out.ToolResults[block.ID] = ToolResult{Content: block.Content}
		}
	}
	return out, nil
}

func toAnthropicBlocks(content any) []anthropicContentBlock {
	switch v := content.(type) {
	case string:
		return []anthropicContentBlock{{Type: "text", Text: v}}
	case []ContentBlock:
		out := make([]anthropicContentBlock, 0, len(v))
		for _, b := range v {
			switch b.Type {
			case "text":
				out = append(out, anthropicContentBlock{Type: "text", Text: b.Text})
			case "tool_use", "server_tool_use":
				input, _ := json.Marshal(b.Input)
				out = append(out, anthropicContentBlock{Type: b.Type, ID: b.ID, Name: b.Name, Input: input})
			case "tool_result":
				out = append(out, anthropicContentBlock{Type: "tool_result", ID: b.ToolUseID, Content: b.Content})
			}
		}
		return out
	default:
		return nil
	}
}
