package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nextlevelbuilder/cairnkernel/internal/llmadapter"
)

type stubToolbox struct {
	dispatched  []string
	dispatchErr map[string]bool
	memory      string
}

func (s *stubToolbox) ToolDefinitions(ctx context.Context) []llmadapter.ToolDefinition {
	return []llmadapter.ToolDefinition{{Name: "generate_output"}}
}

func (s *stubToolbox) Dispatch(ctx context.Context, name string, input map[string]any) (string, bool) {
	s.dispatched = append(s.dispatched, name)
	if s.dispatchErr[name] {
		return fmt.Sprintf("error running %s", name), true
	}
	return `{"end_task": true}`, false
}

func (s *stubToolbox) SettingsSnapshot(ctx context.Context) string   { return "settings" }
func (s *stubToolbox) RepoMemorySnapshot(ctx context.Context) string { return s.memory }
func (s *stubToolbox) UpdateRepoMemory(ctx context.Context, content string) error {
	s.memory = content
	return nil
}

func noSleep(time.Duration) {}

func TestExecutor_SingleToolCallEndsTask(t *testing.T) {
	client := llmadapter.NewFakeAdapter()
	client.QueueResponse(&llmadapter.NormalizedResponse{
		TextContent: "working on it",
		ToolCalls:   []llmadapter.ToolCall{{ID: "tu_1", Name: "generate_output", Input: map[string]any{}}},
	})

	tb := &stubToolbox{}
	exec := New(Config{
		Client:  client,
		Toolbox: tb,
		Model:   "test-model",
		Sleep:   noSleep,
	})

	result, err := exec.Run(context.Background(), "do the task")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tb.dispatched) != 1 || tb.dispatched[0] != "generate_output" {
		t.Fatalf("expected generate_output dispatched once, got %+v", tb.dispatched)
	}
	if result.Iterations != 2 {
		t.Fatalf("expected 2 iterations (plan + execute), got %d", result.Iterations)
	}
	if len(result.ToolOutputs) != 1 {
		t.Fatalf("expected 1 recorded tool output, got %d", len(result.ToolOutputs))
	}
}

func TestExecutor_NoToolCallsEndsImmediately(t *testing.T) {
	client := llmadapter.NewFakeAdapter()
	client.QueueResponse(&llmadapter.NormalizedResponse{TextContent: "final answer"})

	tb := &stubToolbox{}
	exec := New(Config{Client: client, Toolbox: tb, Sleep: noSleep})

	result, err := exec.Run(context.Background(), "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalOutput != "final answer" {
		t.Fatalf("expected final answer, got %q", result.FinalOutput)
	}
	if result.Iterations != 1 {
		t.Fatalf("expected 1 iteration, got %d", result.Iterations)
	}
}

func TestExecutor_ToolErrorDoesNotAbortLoop(t *testing.T) {
	client := llmadapter.NewFakeAdapter()
	client.QueueResponse(&llmadapter.NormalizedResponse{
		ToolCalls: []llmadapter.ToolCall{{ID: "tu_1", Name: "broken_tool", Input: map[string]any{}}},
	})
	client.QueueResponse(&llmadapter.NormalizedResponse{
		ToolCalls: []llmadapter.ToolCall{{ID: "tu_2", Name: "generate_output", Input: map[string]any{}}},
	})

	tb := &stubToolbox{dispatchErr: map[string]bool{"broken_tool": true}}
	exec := New(Config{Client: client, Toolbox: tb, Sleep: noSleep})

	result, err := exec.Run(context.Background(), "do something that fails first")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.ToolOutputs) != 2 || !result.ToolOutputs[0].IsError {
		t.Fatalf("expected first tool output to be an error and loop to continue, got %+v", result.ToolOutputs)
	}
}

func TestExecutor_RepoMemoryTagUpdatesToolbox(t *testing.T) {
	client := llmadapter.NewFakeAdapter()
	client.QueueResponse(&llmadapter.NormalizedResponse{
		TextContent: "<analysis>thinking</analysis>\n<repo_memory>remember this</repo_memory>\ndone",
	})

	tb := &stubToolbox{}
	exec := New(Config{Client: client, Toolbox: tb, Sleep: noSleep})

	if _, err := exec.Run(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tb.memory != "remember this" {
		t.Fatalf("expected repo memory to be updated, got %q", tb.memory)
	}
}

func TestExecutor_RetriesTransientErrorThenSucceeds(t *testing.T) {
	client := llmadapter.NewFakeAdapter()
	client.QueueError(&llmadapter.StatusError{StatusCode: 529, Message: "overloaded"})
	client.QueueError(&llmadapter.StatusError{StatusCode: 529, Message: "overloaded"})
	client.QueueError(&llmadapter.StatusError{StatusCode: 529, Message: "overloaded"})
	client.QueueResponse(&llmadapter.NormalizedResponse{TextContent: "recovered"})

	tb := &stubToolbox{}
	var retries int
	exec := New(Config{
		Client:  client,
		Toolbox: tb,
		Sleep:   noSleep,
		OnRetry: func(attempt, max int, err error) { retries++ },
	})

	result, err := exec.Run(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalOutput != "recovered" {
		t.Fatalf("expected recovered response, got %q", result.FinalOutput)
	}
	if retries != 3 {
		t.Fatalf("expected 3 retry callbacks (4 total attempts), got %d", retries)
	}
	if len(client.Calls()) != 4 {
		t.Fatalf("expected 4 total LLM calls, got %d", len(client.Calls()))
	}
}
