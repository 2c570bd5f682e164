// Package repohost is the capability set the Toolbox Dispatcher consumes
// for all repository I/O: branch management, file read/list/search, batch
// edits, and PR creation (spec.md §4.F, §6). It is treated as an async
// capability set the way spec.md's "Repository host client" is described —
// consumed, not implemented, by the core loop.
package repohost

import "context"

// EditKind is one of the batch edit operation shapes spec.md §6 names.
type EditKind string

const (
	EditReplace   EditKind = "replace"    // full-content replace
	EditDiff      EditKind = "diff"       // unified-diff application with fuzzy recovery
	EditLineRange EditKind = "line_range" // line-range edit
	EditDelete    EditKind = "delete"     // file deletion
)

// FileEdit is one file's worth of a batch commit. Exactly one of Content
// (EditReplace), Diff (EditDiff), or LineStart/LineEnd+Content
// (EditLineRange) is populated depending on Kind; EditDelete needs only
// Path.
type FileEdit struct {
	Kind      EditKind
	Path      string
	Content   string
	Diff      string
	LineStart int
	LineEnd   int
}

// FileEditResult reports the outcome of one FileEdit within a batch. The
// batch commit is atomic at file granularity only, never across files
// (spec.md §6): a failed edit does not roll back its siblings.
type FileEditResult struct {
	Path    string
	Applied bool
	Error   string
}

// SearchMatch is one hit from SearchFiles.
type SearchMatch struct {
	Path string
	Line int
	Text string
}

// Client is the repo-host capability set.
type Client interface {
	// CreateBranch creates branchName from the repo's default branch. Must
	// be idempotent: creating a branch that already exists is a tolerated
	// no-op, not an error (spec.md §8 scenario 6).
	CreateBranch(ctx context.Context, owner, repo, branchName string) error

	// BranchExists reports whether branchName exists. A 404 from the host
	// is the trigger for CreateBranch, per spec.md §4.F "authenticate()".
	BranchExists(ctx context.Context, owner, repo, branchName string) (bool, error)

	ReadFile(ctx context.Context, owner, repo, branch, path string) (string, error)
	ListFiles(ctx context.Context, owner, repo, branch, dir string) ([]string, error)
	SearchFiles(ctx context.Context, owner, repo, branch, query string) ([]SearchMatch, error)

	// CommitBatch applies edits to branch and returns one result per edit,
	// in order. The only write path; atomic per-file, not across files.
	CommitBatch(ctx context.Context, owner, repo, branch string, edits []FileEdit) ([]FileEditResult, error)

	// OpenPR opens a pull request from branch into the repo's default
	// branch and returns its URL.
	OpenPR(ctx context.Context, owner, repo, branch, title, body string) (string, error)
}
