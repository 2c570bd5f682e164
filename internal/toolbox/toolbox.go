package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/nextlevelbuilder/cairnkernel/internal/llmadapter"
	"github.com/nextlevelbuilder/cairnkernel/internal/repohost"
	"github.com/nextlevelbuilder/cairnkernel/internal/store"
)

// Dispatcher is the Toolbox Dispatcher (spec.md §4.F): a role-scoped tool
// registry closed over the task's (owner, repos, branch) focus, plus the
// dynamic settings/per-repo-memory state injected into the system prompt
// every turn (spec.md §4.D "Prompt assembly"). It satisfies the narrow
// agent.Toolbox interface the Agent Executor drives.
type Dispatcher struct {
	mu sync.RWMutex

	kind   store.AgentKind
	owner  string
	repos  []string
	branch string

	client repohost.Client
	logger *slog.Logger

	authenticated bool
	memory        map[string]string // repo -> accumulated memory text

	order []string
	tools map[string]Tool
}

// New builds a Dispatcher for one task, registering the tool set its
// agent_kind is entitled to: every kind gets generate_output and batch;
// Engineer additionally gets the repo file tools; Manager gets open_pr.
func New(kind store.AgentKind, owner string, repos []string, branch string, client repohost.Client, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		kind:   kind,
		owner:  owner,
		repos:  repos,
		branch: branch,
		client: client,
		logger: logger,
		memory: map[string]string{},
		tools:  map[string]Tool{},
	}

	primaryRepo := ""
	if len(repos) > 0 {
		primaryRepo = repos[0]
	}
	f := focus{client: client, owner: owner, repo: primaryRepo, branch: branch}

	d.register(generateOutputTool{kind: kind})
	switch kind {
	case store.AgentKindEngineer:
		d.register(readFileTool{f: f})
		d.register(listFilesTool{f: f})
		d.register(searchFilesTool{f: f})
		d.register(editFileTool{f: f})
	case store.AgentKindManager:
		d.register(openPRTool{f: f})
	}
	d.register(batchTool{d: d})

	return d
}

func (d *Dispatcher) register(t Tool) {
	d.order = append(d.order, t.Name())
	d.tools[t.Name()] = t
}

// Authenticate ensures the focus branch exists, creating it from the
// repo's default branch when a BranchExists lookup reports it absent.
// Idempotent: re-authenticating an already-ensured branch is a no-op.
// Other errors are logged and tolerated per spec.md §4.F — a repo-host
// hiccup here must not abort the run; the task's own tool calls will
// surface a real failure if the branch genuinely isn't usable.
func (d *Dispatcher) Authenticate(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.authenticated || d.branch == "" || d.client == nil {
		d.authenticated = true
		return
	}
	for _, repo := range d.repos {
		exists, err := d.client.BranchExists(ctx, d.owner, repo, d.branch)
		if err != nil {
			d.logger.Warn("toolbox: branch lookup failed, tolerating", "repo", repo, "branch", d.branch, "error", err)
			continue
		}
		if exists {
			continue
		}
		if err := d.client.CreateBranch(ctx, d.owner, repo, d.branch); err != nil {
			d.logger.Warn("toolbox: branch create failed, tolerating", "repo", repo, "branch", d.branch, "error", err)
		}
	}
	d.authenticated = true
}

// ToolDefinitions lists every registered tool in registration order.
func (d *Dispatcher) ToolDefinitions(ctx context.Context) []llmadapter.ToolDefinition {
	d.mu.RLock()
	defer d.mu.RUnlock()
	defs := make([]llmadapter.ToolDefinition, 0, len(d.order))
	for _, name := range d.order {
		t := d.tools[name]
		defs = append(defs, llmadapter.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Parameters(),
		})
	}
	return defs
}

// Dispatch validates input against the named tool's schema, then runs it.
// A schema failure returns a structured error string without calling the
// handler; an unknown tool name does the same.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, input map[string]any) (string, bool) {
	d.mu.RLock()
	t, ok := d.tools[name]
	d.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("unknown tool %q", name), true
	}

	if err := validateAgainstSchema(t.Parameters(), input); err != nil {
		return fmt.Sprintf("invalid input for tool %q: %v", name, err), true
	}

	res := t.Execute(ctx, input)
	return res.ForLLM, res.IsError
}

// validateAgainstSchema compiles schema (a JSON-Schema document expressed
// as the same map literal the teacher's tools.Parameters() returns) and
// validates input against it, grounded on the pack's own
// validatePayloadJSONAgainstSchema (goa-ai's registry/service.go).
func validateAgainstSchema(schema map[string]any, input map[string]any) error {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schema); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return compiled.Validate(doc)
}

// SettingsSnapshot renders the dynamic focus state injected into the
// system prompt every turn (spec.md §4.D "Prompt assembly").
func (d *Dispatcher) SettingsSnapshot(ctx context.Context) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var b strings.Builder
	fmt.Fprintf(&b, "agent_kind: %s\n", d.kind)
	fmt.Fprintf(&b, "owner: %s\n", d.owner)
	fmt.Fprintf(&b, "repos: %s\n", strings.Join(d.repos, ", "))
	if d.branch != "" {
		fmt.Fprintf(&b, "branch: %s\n", d.branch)
	}
	return b.String()
}

// RepoMemorySnapshot renders the accumulated per-repo memory map.
func (d *Dispatcher) RepoMemorySnapshot(ctx context.Context) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.memory) == 0 {
		return ""
	}
	var b strings.Builder
	for _, repo := range d.repos {
		if mem, ok := d.memory[repo]; ok && mem != "" {
			fmt.Fprintf(&b, "## %s\n%s\n\n", repo, mem)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// UpdateRepoMemory stores content against the focus's primary repo — the
// one a run's <repo_memory> tag is understood to describe (spec.md §4.D).
func (d *Dispatcher) UpdateRepoMemory(ctx context.Context, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.repos) == 0 {
		return nil
	}
	d.memory[d.repos[0]] = content
	return nil
}
