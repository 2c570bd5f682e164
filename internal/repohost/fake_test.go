package repohost

import (
	"context"
	"testing"
)

func TestFakeClient_CreateBranchIdempotent(t *testing.T) {
	c := NewFakeClient()
	ctx := context.Background()

	if err := c.CreateBranch(ctx, "acme", "svc", "feat/x"); err != nil {
		t.Fatalf("unexpected error on first create: %v", err)
	}
	exists, err := c.BranchExists(ctx, "acme", "svc", "feat/x")
	if err != nil || !exists {
		t.Fatalf("expected branch to exist after creation, err=%v exists=%v", err, exists)
	}

	if err := c.CreateBranch(ctx, "acme", "svc", "feat/x"); err != nil {
		t.Fatalf("expected re-creating an existing branch to be a tolerated no-op, got error: %v", err)
	}
}

func TestFakeClient_CommitBatchAppliesEditsAndTracksThem(t *testing.T) {
	c := NewFakeClient()
	ctx := context.Background()
	c.SeedFile("svc/routes.py", "old content")

	results, err := c.CommitBatch(ctx, "acme", "svc", "feat/ping", []FileEdit{
		{Kind: EditReplace, Path: "svc/routes.py", Content: "new content"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || !results[0].Applied {
		t.Fatalf("expected one applied edit, got %+v", results)
	}

	got, err := c.ReadFile(ctx, "acme", "svc", "feat/ping", "svc/routes.py")
	if err != nil || got != "new content" {
		t.Fatalf("expected file content updated, got %q, err=%v", got, err)
	}
	if len(c.Commits()) != 1 {
		t.Fatalf("expected one recorded commit, got %d", len(c.Commits()))
	}
}
