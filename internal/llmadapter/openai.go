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

const openaiAPIBase = "https://api.openai.com/v1"

// OpenAIAdapter implements Client over the Chat Completions API, following
// the teacher's own internal/providers/openai.go hand-rolled net/http
// shape: choices[0].message.tool_calls[].function.arguments as a JSON
// string rather than Anthropic's typed content blocks.
type OpenAIAdapter struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{
		apiKey:  apiKey,
		baseURL: openaiAPIBase,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

type openaiFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openaiToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openaiFunctionCall `json:"function"`
}

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openaiFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type openaiToolDef struct {
	Type     string            `json:"type"`
	Function openaiFunctionDef `json:"function"`
}

type openaiRequest struct {
	Model     string          `json:"model"`
	Messages  []openaiMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	Tools     []openaiToolDef `json:"tools,omitempty"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
}

func (a *OpenAIAdapter) Invoke(ctx context.Context, req Request) (*NormalizedResponse, error) {
	msgs := make([]openaiMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, toOpenAIMessages(m)...)
	}

	body := openaiRequest{
		Model:     req.Model,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
	}
	for _, t := range req.ClientTools {
		body.Tools = append(body.Tools, openaiToolDef{
			Type: "function",
			Function: openaiFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("authorization", "Bearer "+a.apiKey)

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
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("openai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))}
	}

	var parsed openaiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}

	msg := parsed.Choices[0].Message
	out := &NormalizedResponse{TextContent: msg.Content, ToolResults: map[string]ToolResult{}, StatusCode: resp.StatusCode}
	for _, tc := range msg.ToolCalls {
		var input map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}
	return out, nil
}

func toOpenAIMessages(m Message) []openaiMessage {
	switch v := m.Content.(type) {
	case string:
		return []openaiMessage{{Role: m.Role, Content: v}}
	case []ContentBlock:
		var out []openaiMessage
		assistant := openaiMessage{Role: m.Role}
		for _, b := range v {
			switch b.Type {
			case "text":
				assistant.Content += b.Text
			case "tool_use":
				input, _ := json.Marshal(b.Input)
				assistant.ToolCalls = append(assistant.ToolCalls, openaiToolCall{
					ID:   b.ID,
					Type: "function",
					Function: openaiFunctionCall{
						Name:      b.Name,
						Arguments: string(input),
					},
				})
			case "tool_result":
				out = append(out, openaiMessage{Role: "tool", Content: b.Content, ToolCallID: b.ToolUseID})
			}
		}
		if assistant.Content != "" || len(assistant.ToolCalls) > 0 {
			out = append([]openaiMessage{assistant}, out...)
		}
		return out
	default:
		return nil
	}
}
