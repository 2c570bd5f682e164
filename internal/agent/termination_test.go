package agent

import (
	"testing"

	"github.com/nextlevelbuilder/cairnkernel/internal/llmadapter"
)

func toolResultMessage(content string) llmadapter.Message {
	return llmadapter.Message{
		Role: "user",
		Content: []llmadapter.ContentBlock{
			{Type: "tool_result", ToolUseID: "tu_1", Content: content},
		},
	}
}

func TestCheckForTaskCompletion_TrueWhenEndTaskSet(t *testing.T) {
	messages := []llmadapter.Message{
		{Role: "assistant", Content: "working"},
		toolResultMessage(`{"end_task": true}`),
	}
	if !checkForTaskCompletion(messages) {
		t.Fatalf("expected completion to be detected")
	}
}

func TestCheckForTaskCompletion_FalseWithoutEndTask(t *testing.T) {
	messages := []llmadapter.Message{
		toolResultMessage(`{"status": "ok"}`),
	}
	if checkForTaskCompletion(messages) {
		t.Fatalf("expected no completion signal")
	}
}

func TestCheckForTaskCompletion_IgnoresMessagesOutsideLookbackWindow(t *testing.T) {
	messages := []llmadapter.Message{
		toolResultMessage(`{"end_task": true}`),
	}
	for i := 0; i < lookbackWindow; i++ {
		messages = append(messages, llmadapter.Message{Role: "assistant", Content: "noise"})
	}
	if checkForTaskCompletion(messages) {
		t.Fatalf("expected the old end_task signal to fall outside the lookback window")
	}
}

func TestCheckForTaskCompletion_MalformedJSONIsIgnored(t *testing.T) {
	messages := []llmadapter.Message{
		toolResultMessage(`not json`),
	}
	if checkForTaskCompletion(messages) {
		t.Fatalf("expected malformed tool_result content to be ignored, not crash or signal completion")
	}
}
