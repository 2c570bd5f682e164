package toolbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/cairnkernel/internal/repohost"
)

// focus is the Toolbox Dispatcher's current (owner, repo, branch) target,
// spec.md §4.F. repo-backed tools close over it rather than taking owner/
// repo/branch as tool arguments, since a task is scoped to one set of
// repos for its whole run.
type focus struct {
	client repohost.Client
	owner  string
	repo   string
	branch string
}

type readFileTool struct{ f focus }

func (t readFileTool) Name() string        { return "read_file" }
func (t readFileTool) Description() string { return "Read a file's contents from the focused repo/branch" }
func (t readFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Path to the file to read"},
		},
		"required": []string{"path"},
	}
}

func (t readFileTool) Execute(ctx context.Context, input map[string]any) Result {
	path, _ := input["path"].(string)
	if path == "" {
		return ErrorResult("path is required")
	}
	content, err := t.f.client.ReadFile(ctx, t.f.owner, t.f.repo, t.f.branch, path)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return NewResult(content)
}

type listFilesTool struct{ f focus }

func (t listFilesTool) Name() string        { return "list_files" }
func (t listFilesTool) Description() string { return "List files under a directory in the focused repo/branch" }
func (t listFilesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dir": map[string]any{"type": "string", "description": "Directory to list, relative to repo root"},
		},
		"required": []string{"dir"},
	}
}

func (t listFilesTool) Execute(ctx context.Context, input map[string]any) Result {
	dir, _ := input["dir"].(string)
	paths, err := t.f.client.ListFiles(ctx, t.f.owner, t.f.repo, t.f.branch, dir)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return NewResult(strings.Join(paths, "\n"))
}

type searchFilesTool struct{ f focus }

func (t searchFilesTool) Name() string        { return "search_files" }
func (t searchFilesTool) Description() string { return "Search file contents by substring in the focused repo/branch" }
func (t searchFilesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	}
}

func (t searchFilesTool) Execute(ctx context.Context, input map[string]any) Result {
	query, _ := input["query"].(string)
	if query == "" {
		return ErrorResult("query is required")
	}
	matches, err := t.f.client.SearchFiles(ctx, t.f.owner, t.f.repo, t.f.branch, query)
	if err != nil {
		return ErrorResult(err.Error())
	}
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "%s:%d: %s\n", m.Path, m.Line, m.Text)
	}
	return NewResult(b.String())
}

type editFileTool struct{ f focus }

func (t editFileTool) Name() string { return "edit_file" }
func (t editFileTool) Description() string {
	return "Apply a single batched edit (replace, diff, line_range, or delete) to a file in the focused repo/branch"
}
func (t editFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":       map[string]any{"type": "string"},
			"kind":       map[string]any{"type": "string", "enum": []string{"replace", "diff", "line_range", "delete"}},
			"content":    map[string]any{"type": "string"},
			"diff":       map[string]any{"type": "string"},
			"line_start": map[string]any{"type": "integer"},
			"line_end":   map[string]any{"type": "integer"},
		},
		"required": []string{"path", "kind"},
	}
}

func (t editFileTool) Execute(ctx context.Context, input map[string]any) Result {
	path, _ := input["path"].(string)
	kind, _ := input["kind"].(string)
	if path == "" || kind == "" {
		return ErrorResult("path and kind are required")
	}
	content, _ := input["content"].(string)
	diff, _ := input["diff"].(string)
	lineStart, _ := input["line_start"].(float64)
	lineEnd, _ := input["line_end"].(float64)

	edit := repohost.FileEdit{
		Kind:      repohost.EditKind(kind),
		Path:      path,
		Content:   content,
		Diff:      diff,
		LineStart: int(lineStart),
		LineEnd:   int(lineEnd),
	}
	results, err := t.f.client.CommitBatch(ctx, t.f.owner, t.f.repo, t.f.branch, []repohost.FileEdit{edit})
	if err != nil {
		return ErrorResult(err.Error())
	}
	if len(results) == 0 || !results[0].Applied {
		msg := "edit was not applied"
		if len(results) > 0 {
			msg = results[0].Error
		}
		return ErrorResult(msg)
	}
	return NewResult(fmt.Sprintf("edited %s", path))
}

type openPRTool struct{ f focus }

func (t openPRTool) Name() string        { return "open_pr" }
func (t openPRTool) Description() string { return "Open a pull request from the focused branch into the repo's default branch" }
func (t openPRTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"body":  map[string]any{"type": "string"},
		},
		"required": []string{"title"},
	}
}

func (t openPRTool) Execute(ctx context.Context, input map[string]any) Result {
	title, _ := input["title"].(string)
	if title == "" {
		return ErrorResult("title is required")
	}
	body, _ := input["body"].(string)
	url, err := t.f.client.OpenPR(ctx, t.f.owner, t.f.repo, t.f.branch, title, body)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return NewResult(url)
}
