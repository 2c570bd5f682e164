// Package store implements the Persistent Store: a SQLite-backed durable
// map of tasks, per-run progress logs, a bounded debug ring, and
// pre-allocated sub-task ids. It is the single source of truth shared by
// the Worker Manager, every Agent Executor child process, and the HTTP
// surface.
package store

import (
	"time"

	"github.com/google/uuid"
)

// AgentKind is one of the three roles a Task can be dispatched to.
type AgentKind string

const (
	AgentKindPlanner  AgentKind = "Planner"
	AgentKindManager  AgentKind = "Manager"
	AgentKindEngineer AgentKind = "Engineer"
)

// Status is a Task's lifecycle state. Transitions only go forward except
// the explicit reset to Failed from Running.
type Status string

const (
	StatusQueued            Status = "Queued"
	StatusRunning            Status = "Running"
	StatusCompleted          Status = "Completed"
	StatusFailed             Status = "Failed"
	StatusSubtasksGenerated  Status = "SubtasksGenerated"
	StatusSubtasksRunning    Status = "SubtasksRunning"
)

// Task is the unit of work tracked by the Persistent Store. It is the Go
// shape of the JSON payload stored in active_tasks.payload.
type Task struct {
	RunID              string    `json:"run_id"`
	AgentKind          AgentKind `json:"agent_kind"`
	Description        string    `json:"description"`
	Owner              string    `json:"owner"`
	Repos              []string  `json:"repos"`
	Branch             string    `json:"branch,omitempty"`
	Status             Status    `json:"status"`
	CreatedAt          string    `json:"created_at"`
	UpdatedAt          string    `json:"updated_at"`
	ModelProvider      string    `json:"model_provider"`
	ModelName          string    `json:"model_name"`
	AgentOutput        any       `json:"agent_output,omitempty"`
	RelatedRunIDs      []string  `json:"related_run_ids,omitempty"`
	SiblingSubtaskIDs  []string  `json:"sibling_subtask_ids,omitempty"`
	ParentFullstackID  string    `json:"parent_fullstack_id,omitempty"`
	SubtaskIndex       *int      `json:"subtask_index,omitempty"`
	ChildRunIDs        []string  `json:"child_run_ids,omitempty"`

	// Ambient fields not present in the original source, carried by this
	// kernel (SPEC_FULL.md §3).
	Error   string `json:"error,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// PlannerOutput is the AgentOutput shape for AgentKindPlanner.
type PlannerOutput struct {
	Summary               string         `json:"summary"`
	Subtasks              []string       `json:"subtasks"`
	SubtaskTitles         []string       `json:"subtask_titles,omitempty"`
	SubtaskRepos          []string       `json:"subtask_repos,omitempty"`
	Difficulty            string         `json:"difficulty,omitempty"`
	PerSubtaskDifficulty  []string       `json:"per_subtask_difficulty,omitempty"`
	PerSubtaskAssignment  []string       `json:"per_subtask_assignment,omitempty"`
	RecommendedApproach   string         `json:"recommended_approach,omitempty"`
	EndTask               bool           `json:"end_task,omitempty"`
}

// ManagerOutput is the AgentOutput shape for AgentKindManager.
type ManagerOutput struct {
	Recommendations    string   `json:"recommendations,omitempty"`
	IssuesEncountered  []string `json:"issues_encountered,omitempty"`
	PullRequestMessage string   `json:"pull_request_message,omitempty"`
	PRURL              string   `json:"pr_url,omitempty"`
	EndTask            bool     `json:"end_task,omitempty"`
}

// EngineerOutput is the AgentOutput shape for AgentKindEngineer.
type EngineerOutput struct {
	SummaryOfChanges  string   `json:"summary_of_changes,omitempty"`
	FilesModified     []string `json:"files_modified,omitempty"`
	VerificationStatus bool    `json:"verification_status,omitempty"`
	ErrorMessages     []string `json:"error_messages,omitempty"`
	BranchURL         string   `json:"branch_url,omitempty"`
	EndTask           bool     `json:"end_task,omitempty"`
}

// ContentBlock is one element of a Message's content list. Exactly one of
// the typed fields is populated depending on Type.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use / server_tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input map[string]any  `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Message is one entry in a ProgressLog's progress list.
type Message struct {
	Role    string         `json:"role"` // system, user, assistant
	Content any            `json:"content"` // string, or []ContentBlock
}

// ProgressLog is the per-(run_id, agent_type) append-only conversation log.
type ProgressLog struct {
	TaskID      string    `json:"task_id"`
	RunID       string    `json:"run_id"`
	AgentType   string    `json:"agent_type"`
	LastUpdated string    `json:"last_updated"`
	Progress    []Message `json:"progress"`
}

// SubtaskRecord is one row of subtask_ids: a pre-allocated, idempotent
// mapping from (fullstack_run_id, subtask_index) to a stable sub-task id.
type SubtaskRecord struct {
	FullstackRunID string `json:"fullstack_run_id"`
	SubtaskIndex   int    `json:"subtask_index"`
	SubtaskID      string `json:"subtask_id"`
	AgentType      string `json:"agent_type"`
}

// DebugMessage is a short timestamped operator-diagnostic string.
type DebugMessage struct {
	MessageID int64  `json:"message_id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Span kinds and statuses for the domain-stack trace_spans table
// (SPEC_FULL.md §4.L). Field shapes mirror the consumer contract observed
// in the teacher's internal/agent/loop_tracing.go; see DESIGN.md.
const (
	SpanTypeAgent    = "agent"
	SpanTypeLLMCall  = "llm_call"
	SpanTypeToolCall = "tool_call"

	SpanStatusCompleted = "completed"
	SpanStatusError     = "error"

	SpanLevelDefault = "DEFAULT"
)

// SpanData is one row of trace_spans.
type SpanData struct {
	ID            uuid.UUID  `json:"id"`
	TraceID       uuid.UUID  `json:"trace_id"`
	ParentSpanID  *uuid.UUID `json:"parent_span_id,omitempty"`
	AgentID       *uuid.UUID `json:"agent_id,omitempty"`
	SpanType      string     `json:"span_type"`
	Name          string     `json:"name"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	DurationMS    int        `json:"duration_ms"`
	Model         string     `json:"model,omitempty"`
	Provider      string     `json:"provider,omitempty"`
	ToolName      string     `json:"tool_name,omitempty"`
	ToolCallID    string     `json:"tool_call_id,omitempty"`
	InputPreview  string     `json:"input_preview,omitempty"`
	OutputPreview string     `json:"output_preview,omitempty"`
	InputTokens   int        `json:"input_tokens,omitempty"`
	OutputTokens  int        `json:"output_tokens,omitempty"`
	FinishReason  string     `json:"finish_reason,omitempty"`
	Status        string     `json:"status"`
	Level         string     `json:"level"`
	Error         string     `json:"error,omitempty"`
	Metadata      []byte     `json:"metadata,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NowStamp formats t the way the application layer stamps created_at /
// updated_at columns: "YYYY-MM-DD HH:MM:SS" (spec.md §6).
func NowStamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
