package toolbox

import (
	"context"
	"encoding/json"

	"github.com/nextlevelbuilder/cairnkernel/internal/store"
)

// generateOutputTool is the single terminal tool every agent kind carries:
// it normalizes the model's structured conclusion into the AgentOutput
// shape spec.md §3 defines for the task's agent_kind, schema-validated
// before Dispatch's caller ever sees it. The Wrapper Entrypoint takes the
// last tool output of the run as the task's final agent_output (spec.md
// §4.G step 5), so this tool's only job is to echo back well-shaped JSON.
type generateOutputTool struct {
	kind store.AgentKind
}

func (t generateOutputTool) Name() string { return "generate_output" }

func (t generateOutputTool) Description() string {
	return "Record the final structured output for this task and optionally end it"
}

func (t generateOutputTool) Parameters() map[string]any {
	switch t.kind {
	case store.AgentKindPlanner:
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary":                map[string]any{"type": "string"},
				"subtasks":               map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"subtask_titles":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"subtask_repos":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"difficulty":             map[string]any{"type": "string"},
				"per_subtask_difficulty": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"per_subtask_assignment": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"recommended_approach":   map[string]any{"type": "string"},
				"end_task":               map[string]any{"type": "boolean"},
			},
			"required": []string{"summary", "subtasks"},
		}
	case store.AgentKindManager:
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"recommendations":      map[string]any{"type": "string"},
				"issues_encountered":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"pull_request_message": map[string]any{"type": "string"},
				"pr_url":               map[string]any{"type": "string"},
				"end_task":             map[string]any{"type": "boolean"},
			},
			"required": []string{"end_task"},
		}
	default: // Engineer
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary_of_changes":  map[string]any{"type": "string"},
				"files_modified":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"verification_status": map[string]any{"type": "boolean"},
				"error_messages":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"branch_url":          map[string]any{"type": "string"},
				"end_task":            map[string]any{"type": "boolean"},
			},
			"required": []string{"summary_of_changes", "end_task"},
		}
	}
}

func (t generateOutputTool) Execute(ctx context.Context, input map[string]any) Result {
	out, err := json.Marshal(input)
	if err != nil {
		return ErrorResult("generate_output: failed to encode output: " + err.Error())
	}
	return NewResult(string(out))
}
