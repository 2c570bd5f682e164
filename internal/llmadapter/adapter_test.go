package llmadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFakeAdapter_FIFOOrder(t *testing.T) {
	f := NewFakeAdapter()
	f.QueueResponse(&NormalizedResponse{TextContent: "first"})
	f.QueueResponse(&NormalizedResponse{TextContent: "second"})

	r1, err := f.Invoke(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r1.TextContent != "first" {
		t.Fatalf("expected first response, got %q", r1.TextContent)
	}

	r2, err := f.Invoke(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r2.TextContent != "second" {
		t.Fatalf("expected second response, got %q", r2.TextContent)
	}
}

func TestFakeAdapter_ExhaustedQueueErrors(t *testing.T) {
	f := NewFakeAdapter()
	f.QueueResponse(&NormalizedResponse{TextContent: "only"})

	if _, err := f.Invoke(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error on first call: %v", err)
	}
	if _, err := f.Invoke(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error once the fake queue is exhausted, got nil")
	}
}

func TestFakeAdapter_RecordsCalls(t *testing.T) {
	f := NewFakeAdapter()
	f.QueueResponse(&NormalizedResponse{})
	req := Request{Model: "test-model"}
	if _, err := f.Invoke(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := f.Calls()
	if len(calls) != 1 || calls[0].Model != "test-model" {
		t.Fatalf("expected recorded call with model %q, got %+v", "test-model", calls)
	}
}

func TestAnthropicAdapter_Invoke_ParsesContentBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key header, got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Errorf("expected anthropic-version header %q, got %q", anthropicAPIVersion, r.Header.Get("anthropic-version"))
		}
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContentBlock{
				{Type: "text", Text: "hello"},
				{Type: "tool_use", ID: "tu_1", Name: "read_file", Input: json.RawMessage(`{"path":"a.go"}`)},
			},
		})
	}))
	defer srv.Close()

	a := NewAnthropicAdapter("test-key")
	a.baseURL = srv.URL

	resp, err := a.Invoke(context.Background(), Request{
		Model:    "claude-test",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TextContent != "hello" {
		t.Fatalf("expected text content %q, got %q", "hello", resp.TextContent)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "read_file" {
		t.Fatalf("expected one read_file tool call, got %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Input["path"] != "a.go" {
		t.Fatalf("expected tool input path=a.go, got %+v", resp.ToolCalls[0].Input)
	}
}

func TestAnthropicAdapter_Invoke_NonRetryableStatusIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	a := NewAnthropicAdapter("bad-key")
	a.baseURL = srv.URL

	_, err := a.Invoke(context.Background(), Request{Model: "claude-test"})
	if err == nil {
		t.Fatalf("expected an error")
	}
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", statusErr.StatusCode)
	}
}

func TestOpenAIAdapter_Invoke_ParsesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("authorization") != "Bearer test-key" {
			t.Errorf("expected bearer auth header, got %q", r.Header.Get("authorization"))
		}
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{
				Role:    "assistant",
				Content: "working on it",
				ToolCalls: []openaiToolCall{{
					ID:   "call_1",
					Type: "function",
					Function: openaiFunctionCall{
						Name:      "list_files",
						Arguments: `{"dir":"."}`,
					},
				}},
			}}},
		})
	}))
	defer srv.Close()

	a := NewOpenAIAdapter("test-key")
	a.baseURL = srv.URL

	resp, err := a.Invoke(context.Background(), Request{
		Model:    "gpt-test",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TextContent != "working on it" {
		t.Fatalf("expected text content %q, got %q", "working on it", resp.TextContent)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "list_files" {
		t.Fatalf("expected one list_files tool call, got %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Input["dir"] != "." {
		t.Fatalf("expected tool input dir=., got %+v", resp.ToolCalls[0].Input)
	}
}

func TestOpenAIAdapter_Invoke_EmptyChoicesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(openaiResponse{})
	}))
	defer srv.Close()

	a := NewOpenAIAdapter("test-key")
	a.baseURL = srv.URL

	if _, err := a.Invoke(context.Background(), Request{Model: "gpt-test"}); err == nil {
		t.Fatalf("expected an error for empty choices")
	}
}
