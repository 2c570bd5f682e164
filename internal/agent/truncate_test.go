package agent

import (
	"testing"

	"github.com/nextlevelbuilder/cairnkernel/internal/llmadapter"
)

func cycle(n int) []llmadapter.Message {
	var out []llmadapter.Message
	for i := 0; i < n; i++ {
		out = append(out,
			llmadapter.Message{Role: "assistant", Content: "a"},
			llmadapter.Message{Role: "user", Content: "u"},
		)
	}
	return out
}

func TestTruncateConversationHistory_UnderLimitUnchanged(t *testing.T) {
	full := append([]llmadapter.Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "original"},
	}, cycle(2)...)

	got := truncateConversationHistory(full, 3)
	if len(got) != len(full) {
		t.Fatalf("expected no truncation under the limit, got %d messages (want %d)", len(got), len(full))
	}
}

func TestTruncateConversationHistory_OverLimitInsertsNotice(t *testing.T) {
	full := append([]llmadapter.Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "original"},
	}, cycle(5)...)

	got := truncateConversationHistory(full, 3)

	// system + user-input + notice + 3 kept cycles (6 messages) = 9
	if len(got) != 9 {
		t.Fatalf("expected 9 messages after truncation, got %d", len(got))
	}
	if got[2].Role != "user" {
		t.Fatalf("expected truncation notice at index 2, got role %q", got[2].Role)
	}
	notice, ok := got[2].Content.(string)
	if !ok || notice == "" {
		t.Fatalf("expected a non-empty truncation notice string, got %+v", got[2].Content)
	}
}

func TestTruncateConversationHistory_TwoOrFewerMessagesPassthrough(t *testing.T) {
	full := []llmadapter.Message{{Role: "system", Content: "sys"}}
	got := truncateConversationHistory(full, 3)
	if len(got) != 1 {
		t.Fatalf("expected passthrough for <=2 messages, got %d", len(got))
	}
}

func TestReformatMessages_InsertsSystemWhenAbsent(t *testing.T) {
	got := reformatMessages([]llmadapter.Message{{Role: "user", Content: "hi"}}, "sys-v2")
	if got[0].Role != "system" || got[0].Content != "sys-v2" {
		t.Fatalf("expected system message inserted at index 0, got %+v", got[0])
	}
	if len(got) != 2 {
		t.Fatalf("expected original message preserved, got %d messages", len(got))
	}
}

func TestReformatMessages_ReplacesExistingSystemMessage(t *testing.T) {
	got := reformatMessages([]llmadapter.Message{
		{Role: "system", Content: "stale"},
		{Role: "user", Content: "hi"},
	}, "fresh")
	if got[0].Content != "fresh" {
		t.Fatalf("expected system message refreshed, got %+v", got[0].Content)
	}
}
