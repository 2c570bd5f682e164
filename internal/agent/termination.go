package agent

import (
	"encoding/json"

	"github.com/nextlevelbuilder/cairnkernel/internal/llmadapter"
)

// lookbackWindow bounds how many trailing messages are scanned for a
// completion signal, per spec.md §4.D's "last ≤5 messages".
const lookbackWindow = 5

// checkForTaskCompletion scans the trailing messages for a user-role
// tool_result block whose content decodes as JSON with end_task=true.
// Ported from _check_for_task_completion in original_source's
// langgraph_utils.py.
func checkForTaskCompletion(messages []llmadapter.Message) bool {
	if len(messages) == 0 {
		return false
	}
	start := len(messages) - lookbackWindow
	if start < 0 {
		start = 0
	}
	for i := len(messages) - 1; i >= start; i-- {
		msg := messages[i]
		if msg.Role != "user" {
			continue
		}
		blocks, ok := msg.Content.([]llmadapter.ContentBlock)
		if !ok {
			continue
		}
		for _, b := range blocks {
			if b.Type != "tool_result" {
				continue
			}
			var parsed map[string]any
			if err := json.Unmarshal([]byte(b.Content), &parsed); err != nil {
				continue
			}
			if endTask, _ := parsed["end_task"].(bool); endTask {
				return true
			}
		}
	}
	return false
}
