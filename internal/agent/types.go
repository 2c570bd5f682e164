// Package agent implements the Agent Executor: a single-threaded
// cooperative loop driving an LLM ↔ tool-dispatch cycle for one worker,
// directly parallel to the teacher's Loop.runLoop in
// internal/agent/loop.go, re-expressed as the explicit two-state machine
// described by the kernel's own control-flow shape instead of the
// teacher's single unbounded while loop.
package agent

import (
	"time"

	"github.com/nextlevelbuilder/cairnkernel/internal/llmadapter"
)

// State is the executor's cooperative-loop position.
type State int

const (
	Planning State = iota
	ExecutingTools
	Done
)

func (s State) String() string {
	switch s {
	case Planning:
		return "planning"
	case ExecutingTools:
		return "executing_tools"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// ToolOutputEntry is one append-only record of a tool invocation.
type ToolOutputEntry struct {
	ToolName  string
	ToolID    string
	Input     map[string]any
	Output    string
	IsError   bool
	Timestamp time.Time
}

// RunResult is what one executor Run produces.
type RunResult struct {
	FinalOutput string
	Messages    []llmadapter.Message
	ToolOutputs []ToolOutputEntry
	Iterations  int
}
