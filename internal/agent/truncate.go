package agent

import (
	"fmt"

	"github.com/nextlevelbuilder/cairnkernel/internal/llmadapter"
)

// defaultMaxCallStack is K in spec terms: the number of trailing complete
// (assistant, user) interaction cycles kept in the LLM-facing prompt.
const defaultMaxCallStack = 3

// reformatMessages regenerates the system message (index 0) from the latest
// dynamic settings/memory snapshot, inserting it if absent. Mirrors
// reformat_messages in original_source's langgraph_utils.py.
func reformatMessages(full []llmadapter.Message, systemPrompt string) []llmadapter.Message {
	if len(full) == 0 {
		return []llmadapter.Message{{Role: "system", Content: systemPrompt}}
	}
	if full[0].Role == "system" {
		out := make([]llmadapter.Message, len(full))
		copy(out, full)
		out[0] = llmadapter.Message{Role: "system", Content: systemPrompt}
		return out
	}
	out := make([]llmadapter.Message, 0, len(full)+1)
	out = append(out, llmadapter.Message{Role: "system", Content: systemPrompt})
	out = append(out, full...)
	return out
}

// truncateConversationHistory keeps the system message, the original user
// input, and the most recent maxCallStack complete interaction cycles,
// inserting a single truncation notice when older cycles are dropped.
// Ported 1:1 from truncate_conversation_history in original_source's
// langgraph_utils.py — including its tolerance of an odd (incomplete)
// trailing cycle, which should not happen in steady state but is handled
// the same defensive way the Python does.
func truncateConversationHistory(full []llmadapter.Message, maxCallStack int) []llmadapter.Message {
	if maxCallStack <= 0 {
		maxCallStack = defaultMaxCallStack
	}
	if len(full) <= 2 {
		out := make([]llmadapter.Message, len(full))
		copy(out, full)
		return out
	}

	systemMessage := full[0]
	userInputMessage := full[1]
	conversation := full[2:]

	incompleteCycle := len(conversation)%2 != 0
	completeCycles := len(conversation) / 2
	if completeCycles <= maxCallStack {
		out := make([]llmadapter.Message, len(full))
		copy(out, full)
		return out
	}

	messagesToKeep := maxCallStack * 2
	if incompleteCycle {
		messagesToKeep++
	}
	if messagesToKeep > len(conversation) {
		messagesToKeep = len(conversation)
	}

	kept := conversation[len(conversation)-messagesToKeep:]
	dropped := conversation[:len(conversation)-messagesToKeep]

	notice := llmadapter.Message{
		Role: "user",
		Content: fmt.Sprintf(
			"[System Notice: Truncated %d older messages to preserve context length. "+
				"Kept %d recent interaction cycles. Use analysis of recent interactions to gain context about prior work.]",
			len(dropped), len(kept)/2),
	}

	out := make([]llmadapter.Message, 0, 3+len(kept))
	out = append(out, systemMessage, userInputMessage, notice)
	out = append(out, kept...)
	return out
}
