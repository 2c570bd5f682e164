package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
)

type batchCtxKey int

const batchDepthKey batchCtxKey = 0

// batchDepth reports how many batch tools are already on the call stack
// for ctx.
func batchDepth(ctx context.Context) int {
	d, _ := ctx.Value(batchDepthKey).(int)
	return d
}

// batchEntry is one element of a batch tool's result list.
type batchEntry struct {
	ToolName string `json:"tool_name"`
	Args     any    `json:"args"`
	Result   string `json:"result"`
	IsError  bool   `json:"is_error"`
}

// batchTool is the aggregate tool spec.md §4.F/§9 "Tool aggregation"
// names: it accepts {tool_calls: [{name, args}]} and invokes each child in
// sequence, tolerating per-child errors without aborting the rest of the
// batch. Nesting is rejected at depth 1, grounded on the same
// recursion-guard shape as the teacher's DelegateManager.prepareDelegation
// capacity checks (internal/tools/delegate.go).
type batchTool struct {
	d *Dispatcher
}

func (batchTool) Name() string        { return "batch" }
func (batchTool) Description() string { return "Invoke multiple tools in sequence in a single turn" }

func (batchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tool_calls": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
						"args": map[string]any{"type": "object"},
					},
					"required": []string{"name"},
				},
			},
		},
		"required": []string{"tool_calls"},
	}
}

func (t batchTool) Execute(ctx context.Context, input map[string]any) Result {
	if batchDepth(ctx) >= 1 {
		return ErrorResult("batch cannot call batch: nesting depth limit is 1")
	}
	ctx = context.WithValue(ctx, batchDepthKey, batchDepth(ctx)+1)

	rawCalls, _ := input["tool_calls"].([]any)
	if len(rawCalls) == 0 {
		return ErrorResult("tool_calls must be a non-empty array")
	}

	entries := make([]batchEntry, 0, len(rawCalls))
	for _, rc := range rawCalls {
		call, ok := rc.(map[string]any)
		if !ok {
			entries = append(entries, batchEntry{Result: "malformed tool call entry", IsError: true})
			continue
		}
		name, _ := call["name"].(string)
		args, _ := call["args"].(map[string]any)
		if name == "batch" {
			entries = append(entries, batchEntry{ToolName: name, Args: args, Result: "batch cannot call batch", IsError: true})
			continue
		}
		output, isErr := t.d.Dispatch(ctx, name, args)
		entries = append(entries, batchEntry{ToolName: name, Args: args, Result: output, IsError: isErr})
	}

	out, err := json.Marshal(entries)
	if err != nil {
		return ErrorResult(fmt.Sprintf("batch: failed to encode results: %v", err))
	}
	return NewResult(string(out))
}
