package repohost

import (
	"context"
	"fmt"
	"sync"
)

// FakeClient is an in-memory Client for tests: a branch set, a flat
// path→content file map, and a record of committed edits and opened PRs.
type FakeClient struct {
	mu       sync.Mutex
	branches map[string]bool
	files    map[string]string
	commits  []FileEdit
	prs      []string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		branches: map[string]bool{},
		files:    map[string]string{},
	}
}

func (f *FakeClient) SeedFile(path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = content
}

func (f *FakeClient) BranchExists(ctx context.Context, owner, repo, branchName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.branches[branchName], nil
}

func (f *FakeClient) CreateBranch(ctx context.Context, owner, repo, branchName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branches[branchName] = true // idempotent: re-creating is a no-op
	return nil
}

func (f *FakeClient) ReadFile(ctx context.Context, owner, repo, branch, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("repohost fake: file %q not found", path)
	}
	return content, nil
}

func (f *FakeClient) ListFiles(ctx context.Context, owner, repo, branch, dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for path := range f.files {
		out = append(out, path)
	}
	return out, nil
}

func (f *FakeClient) SearchFiles(ctx context.Context, owner, repo, branch, query string) ([]SearchMatch, error) {
	return nil, nil
}

func (f *FakeClient) CommitBatch(ctx context.Context, owner, repo, branch string, edits []FileEdit) ([]FileEditResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]FileEditResult, 0, len(edits))
	for _, e := range edits {
		f.commits = append(f.commits, e)
		switch e.Kind {
		case EditDelete:
			delete(f.files, e.Path)
		case EditReplace, EditDiff, EditLineRange:
			f.files[e.Path] = e.Content
		}
		results = append(results, FileEditResult{Path: e.Path, Applied: true})
	}
	return results, nil
}

func (f *FakeClient) OpenPR(ctx context.Context, owner, repo, branch, title, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	url := fmt.Sprintf("https://example.invalid/%s/%s/pull/%d", owner, repo, len(f.prs)+1)
	f.prs = append(f.prs, url)
	return url, nil
}

// Commits returns every edit CommitBatch has recorded so far, in order.
func (f *FakeClient) Commits() []FileEdit {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FileEdit, len(f.commits))
	copy(out, f.commits)
	return out
}
