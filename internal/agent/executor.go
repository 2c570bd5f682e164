package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/cairnkernel/internal/llmadapter"
	"github.com/nextlevelbuilder/cairnkernel/internal/store"
	"github.com/nextlevelbuilder/cairnkernel/internal/tracing"
)

// Toolbox is the subset of the Toolbox Dispatcher (spec.md §4.F) the
// executor drives. Kept as a narrow interface here rather than importing
// internal/toolbox directly, so this package can be unit-tested against a
// stub without pulling in the repo-host/schema-validation stack.
type Toolbox interface {
	ToolDefinitions(ctx context.Context) []llmadapter.ToolDefinition
	Dispatch(ctx context.Context, name string, input map[string]any) (output string, isError bool)
	SettingsSnapshot(ctx context.Context) string
	RepoMemorySnapshot(ctx context.Context) string
	UpdateRepoMemory(ctx context.Context, content string) error
}

// SystemPromptFunc renders the system prompt from the base template plus
// the latest dynamic settings/memory snapshot, mirroring prompt.format in
// original_source's agent_node.
type SystemPromptFunc func(settings, memory string) string

// Config configures one Executor.
type Config struct {
	Client           llmadapter.Client
	Toolbox          Toolbox
	PromptTemplate   SystemPromptFunc
	Model            string
	MaxTokens        int
	MaxCallStack     int // K in spec terms, default 3
	MaxIterations    int // recursion backstop, default 50 (original_source's recursion_limit)
	Tracer           *tracing.Collector
	Logger           *slog.Logger
	TaskID, RunID    string
	AgentType        string // "Planner" | "Manager" | "Engineer", for logging/spans
	Sleep            func(time.Duration) // injectable for tests; defaults to time.Sleep
	OnRetry          func(attempt, max int, err error)
}

// Executor drives the Planning → ExecutingTools → Done cooperative loop
// for one worker (spec.md §4.D).
type Executor struct {
	cfg Config
}

func New(cfg Config) *Executor {
	if cfg.MaxCallStack <= 0 {
		cfg.MaxCallStack = defaultMaxCallStack
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 50
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PromptTemplate == nil {
		cfg.PromptTemplate = func(settings, memory string) string { return settings + "\n\n" + memory }
	}
	return &Executor{cfg: cfg}
}

// Run drives the loop to completion for one user input, returning the
// final assistant text and the full message/tool-output history.
func (e *Executor) Run(ctx context.Context, userInput string) (*RunResult, error) {
	traceID := uuid.Nil
	if e.cfg.Tracer != nil {
		traceID = tracing.TraceIDFromContext(ctx)
	}

	var messages []llmadapter.Message
	var toolOutputs []ToolOutputEntry
	var pendingToolCalls []llmadapter.ToolCall
	serverToolResults := map[string]llmadapter.ToolResult{}
	state := Planning
	iteration := 0
	finalText := ""

	for state != Done {
		iteration++
		if iteration > e.cfg.MaxIterations {
			e.cfg.Logger.Warn("agent executor: iteration limit reached", "run_id", e.cfg.RunID, "max", e.cfg.MaxIterations)
			break
		}

		switch state {
		case Planning:
			systemPrompt := e.cfg.PromptTemplate(
				e.cfg.Toolbox.SettingsSnapshot(ctx),
				e.cfg.Toolbox.RepoMemorySnapshot(ctx),
			)

			var full []llmadapter.Message
			if len(messages) == 0 {
				full = reformatMessages(nil, systemPrompt)
				full = append(full, llmadapter.Message{Role: "user", Content: userInput})
			} else {
				full = reformatMessages(messages, systemPrompt)
			}
			messages = full

			messagesForLLM := truncateConversationHistory(messages, e.cfg.MaxCallStack)

			req := llmadapter.Request{
				Messages:    messagesForLLM,
				ClientTools: e.cfg.Toolbox.ToolDefinitions(ctx),
				Model:       e.cfg.Model,
				MaxTokens:   e.cfg.MaxTokens,
			}

			llmStart := time.Now().UTC()
			resp, err := invokeWithRetry(ctx, e.cfg.Client, req, e.cfg.Sleep, e.cfg.OnRetry)
			e.emitLLMSpan(ctx, traceID, llmStart, iteration, err)
			if err != nil {
				return nil, err
			}

			serverToolResults = resp.ToolResults

			repoMemory := extractTagInfo(resp.TextContent, repoMemoryTagRe)
			if repoMemory != "" {
				if err := e.cfg.Toolbox.UpdateRepoMemory(ctx, repoMemory); err != nil {
					e.cfg.Logger.Warn("agent executor: repo memory update failed", "run_id", e.cfg.RunID, "error", err)
				}
			}

			assistantBlocks := make([]llmadapter.ContentBlock, 0, len(resp.ToolCalls)+1)
			if resp.TextContent != "" {
				assistantBlocks = append(assistantBlocks, llmadapter.ContentBlock{Type: "text", Text: resp.TextContent})
			}
			for _, tc := range resp.ToolCalls {
				assistantBlocks = append(assistantBlocks, llmadapter.ContentBlock{
					Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: tc.Input,
				})
			}
			messages = append(messages, llmadapter.Message{Role: "assistant", Content: assistantBlocks})

			finalText = resp.TextContent

			if len(resp.ToolCalls) == 0 {
				state = Done
				continue
			}

			pendingToolCalls = resp.ToolCalls
			state = ExecutingTools

		case ExecutingTools:
			out := e.executeTools(ctx, traceID, pendingToolCalls, serverToolResults)
			toolOutputs = append(toolOutputs, out.entries...)
			messages = append(messages, llmadapter.Message{Role: "user", Content: out.blocks})
			pendingToolCalls = nil

			if checkForTaskCompletion(messages) {
				state = Done
			} else {
				state = Planning
			}
		}
	}

	return &RunResult{
		FinalOutput: finalText,
		Messages:    messages,
		ToolOutputs: toolOutputs,
		Iterations:  iteration,
	}, nil
}

type toolExecutionResult struct {
	blocks  []llmadapter.ContentBlock
	entries []ToolOutputEntry
}

// executeTools runs every pending tool call in order of appearance,
// producing one aggregated user-role message, per spec.md §4.D "Tool
// execution".
func (e *Executor) executeTools(ctx context.Context, traceID uuid.UUID, calls []llmadapter.ToolCall, serverResults map[string]llmadapter.ToolResult) toolExecutionResult {
	out := toolExecutionResult{}
	for _, tc := range calls {
		toolStart := time.Now().UTC()
		var output string
		var isErr bool

		if tc.ServerExecuted {
			if res, ok := serverResults[tc.ID]; ok {
				output, isErr = res.Content, res.IsError
			} else {
				output, isErr = "server-executed tool result not found for id "+tc.ID, true
			}
		} else {
			output, isErr = e.cfg.Toolbox.Dispatch(ctx, tc.Name, tc.Input)
		}

		e.emitToolSpan(ctx, traceID, toolStart, tc, output, isErr)

		e.cfg.Logger.Info("tool call", "run_id", e.cfg.RunID, "tool", tc.Name, "is_error", isErr)

		out.blocks = append(out.blocks, llmadapter.ContentBlock{
			Type: "tool_result", ToolUseID: tc.ID, Content: output, IsError: isErr,
		})
		out.entries = append(out.entries, ToolOutputEntry{
			ToolName: tc.Name, ToolID: tc.ID, Input: tc.Input,
			Output: output, IsError: isErr, Timestamp: time.Now().UTC(),
		})
	}
	return out
}

func (e *Executor) emitLLMSpan(ctx context.Context, traceID uuid.UUID, start time.Time, iteration int, callErr error) {
	if e.cfg.Tracer == nil {
		return
	}
	end := time.Now().UTC()
	span := store.SpanData{
		TraceID:    traceID,
		SpanType:   store.SpanTypeLLMCall,
		Name:       "llm_call",
		StartTime:  start,
		EndTime:    &end,
		DurationMS: int(end.Sub(start).Milliseconds()),
		Model:      e.cfg.Model,
		Status:     store.SpanStatusCompleted,
		Level:      store.SpanLevelDefault,
		CreatedAt:  end,
	}
	if parent := tracing.ParentSpanIDFromContext(ctx); parent != uuid.Nil {
		span.ParentSpanID = &parent
	}
	if callErr != nil {
		span.Status = store.SpanStatusError
		span.Error = callErr.Error()
	}
	e.cfg.Tracer.EmitSpan(span)
}

func (e *Executor) emitToolSpan(ctx context.Context, traceID uuid.UUID, start time.Time, tc llmadapter.ToolCall, output string, isErr bool) {
	if e.cfg.Tracer == nil {
		return
	}
	end := time.Now().UTC()
	preview := output
	if !e.cfg.Tracer.Verbose() && len(preview) > 500 {
		preview = preview[:500]
	}
	span := store.SpanData{
		TraceID:       traceID,
		SpanType:      store.SpanTypeToolCall,
		Name:          tc.Name,
		ToolName:      tc.Name,
		ToolCallID:    tc.ID,
		StartTime:     start,
		EndTime:       &end,
		DurationMS:    int(end.Sub(start).Milliseconds()),
		OutputPreview: preview,
		Status:        store.SpanStatusCompleted,
		Level:         store.SpanLevelDefault,
		CreatedAt:     end,
	}
	if parent := tracing.ParentSpanIDFromContext(ctx); parent != uuid.Nil {
		span.ParentSpanID = &parent
	}
	if isErr {
		span.Status = store.SpanStatusError
		span.Error = output
	}
	e.cfg.Tracer.EmitSpan(span)
}
