// Package cairnworker implements the Wrapper Entrypoint (spec.md §4.G):
// the child-process `main(run_id)` that loads a task's payload, drives
// one Agent Executor run to completion, and writes the terminal status
// back to the Store. Grounded directly on
// original_source/agent_worker/worker.py's run_agent_task/main and
// cairn_utils/agents/wrapper.py's wrapper().
package cairnworker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/cairnkernel/internal/agent"
	"github.com/nextlevelbuilder/cairnkernel/internal/config"
	"github.com/nextlevelbuilder/cairnkernel/internal/llmadapter"
	"github.com/nextlevelbuilder/cairnkernel/internal/repohost"
	"github.com/nextlevelbuilder/cairnkernel/internal/store"
	"github.com/nextlevelbuilder/cairnkernel/internal/toolbox"
)

// basePrompt is the system prompt template's fixed preamble. Real prompt
// copy belongs to the operator's deployment, not this kernel; this is the
// minimal scaffold the teacher's prompt.format equivalent wraps around the
// dynamic settings/memory blocks.
const basePrompt = "You are an autonomous software delivery agent operating under the cairn kernel."

func systemPrompt(settings, memory string) string {
	return basePrompt + "\n\n" + settings + "\n\n" + memory
}

// buildClient selects the LLM adapter for (provider, model), per spec.md
// §4.G step 4. An empty provider selects the Anthropic adapter; an unknown
// provider falls back to the fake adapter, whose empty queue makes a
// misconfigured task fail loudly inside the executor rather than here.
// A package variable (not a plain function) so tests can substitute a
// pre-queued FakeAdapter without standing up real credentials.
var buildClient = func(cfg config.Config, provider string) llmadapter.Client {
	switch provider {
	case "openai":
		return llmadapter.NewOpenAIAdapter(cfg.Providers.OpenAI.APIKey)
	case "anthropic", "":
		return llmadapter.NewAnthropicAdapter(cfg.Providers.Anthropic.APIKey)
	default:
		return llmadapter.NewFakeAdapter()
	}
}

var buildRepoClient = func(cfg config.Config) repohost.Client {
	if cfg.Tools.RepoHostBaseURL == "" {
		return repohost.NewFakeClient()
	}
	return repohost.NewHTTPClient(cfg.Tools.RepoHostBaseURL, cfg.Tools.RepoHostToken)
}

// Run is the Wrapper Entrypoint's main(run_id): load, run, reconcile.
// Step 1 (load env / connect to Store) is the caller's responsibility —
// Run takes an already-open Store, matching how cmd/worker.go wires it.
func Run(ctx context.Context, st *store.Store, cfg config.Config, runID string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	// Step 2: read the task payload (abort if missing).
	handle, err := st.GetActiveTaskPersistent(runID)
	if err != nil {
		return fmt.Errorf("cairnworker: task %s not found: %w", runID, err)
	}

	task, err := st.GetActiveTask(runID)
	if err != nil {
		return fmt.Errorf("cairnworker: load task %s: %w", runID, err)
	}

	// Step 3: transition to Running.
	handle.Set("status", string(store.StatusRunning))
	handle.Set("updated_at", store.NowStamp(time.Now()))
	handle.ForceFlush()

	result, runErr := runAgent(ctx, task, cfg, logger)
	if runErr != nil {
		// Step 6: on exception, Failed + error + updated_at.
		logger.Error("cairnworker: run failed", "run_id", runID, "error", runErr)
		handle.Set("status", string(store.StatusFailed))
		handle.Set("error", runErr.Error())
		handle.Set("updated_at", store.NowStamp(time.Now()))
		handle.ForceFlush()
		return runErr
	}

	// Step 5: take the last tool output as the final agent_output,
	// clearing its end_task flag.
	output := finalOutput(result)
	handle.Set("agent_output", output)
	handle.Set("status", string(store.StatusCompleted))
	handle.Set("updated_at", store.NowStamp(time.Now()))
	handle.ForceFlush()

	// Step 7: for a successful Planner, pre-allocate sub-task ids.
	if task.AgentKind == store.AgentKindPlanner {
		if err := allocatePlannerSubtasks(st, handle, runID, output); err != nil {
			logger.Error("cairnworker: pre-generate subtask ids failed", "run_id", runID, "error", err)
			// Tolerated: the run itself already succeeded (wrapper.py's own
			// try/except around pre_generate_subtask_ids).
		}
	}

	logger.Info("cairnworker: run complete", "run_id", runID, "status", store.StatusCompleted)
	return nil
}

func runAgent(ctx context.Context, task *store.Task, cfg config.Config, logger *slog.Logger) (*agent.RunResult, error) {
	client := buildClient(cfg, task.ModelProvider)
	repoClient := buildRepoClient(cfg)

	tb := toolbox.New(task.AgentKind, task.Owner, task.Repos, task.Branch, repoClient, logger)
	tb.Authenticate(ctx)

	model := task.ModelName
	if model == "" {
		model = cfg.Worker.Model
	}

	exec := agent.New(agent.Config{
		Client:         client,
		Toolbox:        tb,
		PromptTemplate: systemPrompt,
		Model:          model,
		Logger:         logger,
		TaskID:         task.RunID,
		RunID:          task.RunID,
		AgentType:      string(task.AgentKind),
	})

	return exec.Run(ctx, task.Description)
}

// finalOutput picks the last tool output produced by the run and clears
// its end_task flag, per spec.md §4.G step 5. Falls back to an empty
// object if the run produced no tool calls at all.
func finalOutput(result *agent.RunResult) map[string]any {
	if result == nil || len(result.ToolOutputs) == 0 {
		return map[string]any{}
	}
	last := result.ToolOutputs[len(result.ToolOutputs)-1]

	var out map[string]any
	if err := json.Unmarshal([]byte(last.Output), &out); err != nil || out == nil {
		return map[string]any{"summary": last.Output}
	}
	out["end_task"] = false
	return out
}

// allocatePlannerSubtasks pre-generates sub-task ids for a completed
// Planner's subtasks list and attaches them to the payload, mirroring
// wrapper.py's post-completion block.
func allocatePlannerSubtasks(st *store.Store, handle *store.LiveHandle, runID string, output map[string]any) error {
	rawSubtasks, ok := output["subtasks"].([]any)
	if !ok || len(rawSubtasks) == 0 {
		return nil
	}

	records, err := st.PreGenerateSubtaskIDs(runID, len(rawSubtasks))
	if err != nil {
		return err
	}

	ids := make([]string, len(records))
	for _, rec := range records {
		if rec.SubtaskIndex >= 0 && rec.SubtaskIndex < len(ids) {
			ids[rec.SubtaskIndex] = rec.SubtaskID
		}
	}
	handle.Set("subtask_ids", ids)
	handle.ForceFlush()
	return nil
}
