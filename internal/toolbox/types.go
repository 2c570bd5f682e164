// Package toolbox implements the Toolbox Dispatcher (spec.md §4.F): the
// per-role tool registry, repo-host authentication/focus state, and
// schema-validated dispatch the Agent Executor drives through the
// agent.Toolbox interface. Grounded on the teacher's internal/tools
// package — the per-tool Name/Description/Parameters/Execute shape of
// filesystem.go and create_image.go, and the recursive, per-child-error-
// tolerant dispatch pattern of delegate.go's DelegateManager.
package toolbox

import "context"

// Result is the unified return type from tool execution, matching the
// shape of the teacher's own tools.Result (ForLLM/IsError), narrowed to
// what this kernel's single-turn tool_result content block needs.
type Result struct {
	ForLLM  string
	IsError bool
}

func NewResult(forLLM string) Result        { return Result{ForLLM: forLLM} }
func ErrorResult(message string) Result     { return Result{ForLLM: message, IsError: true} }

// Tool is one dispatchable capability. Parameters returns a JSON-Schema
// document (the same map-literal shape the teacher's tools use) validated
// against the call's input before Execute runs.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, input map[string]any) Result
}
