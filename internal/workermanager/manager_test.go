package workermanager

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nextlevelbuilder/cairnkernel/internal/store"
)

func newTestManager(t *testing.T, workerArgs []string) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cairn_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	m := New(st, nil, "/bin/sh", workerArgs, t.TempDir(), nil)
	return m, st
}

func addRunningTask(t *testing.T, st *store.Store, runID string) {
	t.Helper()
	if err := st.AddActiveTask(&store.Task{
		RunID:     runID,
		AgentKind: store.AgentKindEngineer,
		Status:    store.StatusRunning,
	}); err != nil {
		t.Fatalf("add active task: %v", err)
	}
}

func waitForCompletion(t *testing.T, m *Manager) completion {
	t.Helper()
	select {
	case c := <-m.completions:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for child completion")
		return completion{}
	}
}

func TestManager_ReconcileMarksCompletedOnZeroExit(t *testing.T) {
	m, st := newTestManager(t, []string{"-c", "exit 0"})
	addRunningTask(t, st, "run_ok")

	if err := m.SpawnChild(context.Background(), "run_ok"); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	m.reconcile(waitForCompletion(t, m))

	task, err := st.GetActiveTask("run_ok")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.Status != store.StatusCompleted {
		t.Fatalf("expected Completed, got %s", task.Status)
	}
}

func TestManager_ReconcileMarksFailedOnNonzeroExit(t *testing.T) {
	m, st := newTestManager(t, []string{"-c", "exit 7"})
	addRunningTask(t, st, "run_fail")

	if err := m.SpawnChild(context.Background(), "run_fail"); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	m.reconcile(waitForCompletion(t, m))

	task, err := st.GetActiveTask("run_fail")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.Status != store.StatusFailed || task.Error == "" {
		t.Fatalf("expected Failed with an error message, got status=%s error=%q", task.Status, task.Error)
	}
}

func TestManager_ReconcileDoesNotClobberWorkerOwnedTerminalStatus(t *testing.T) {
	m, st := newTestManager(t, []string{"-c", "exit 1"})
	// Simulate the worker itself having already finalized the row as
	// Completed before the process exits non-zero (e.g. cleanup raced
	// with its own final write).
	if err := st.AddActiveTask(&store.Task{RunID: "run_owned", AgentKind: store.AgentKindEngineer, Status: store.StatusCompleted}); err != nil {
		t.Fatalf("add active task: %v", err)
	}

	if err := m.SpawnChild(context.Background(), "run_owned"); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	m.reconcile(waitForCompletion(t, m))

	task, err := st.GetActiveTask("run_owned")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.Status != store.StatusCompleted {
		t.Fatalf("expected worker's own Completed status to survive, got %s", task.Status)
	}
}

func TestManager_CreateTaskMarksFailedWhenSpawnFails(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "cairn_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	m := New(st, nil, "/nonexistent/binary", nil, t.TempDir(), nil)

	task := &store.Task{RunID: "run_bad", AgentKind: store.AgentKindEngineer}
	if _, err := m.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask should tolerate spawn failure, got error: %v", err)
	}

	got, err := st.GetActiveTask("run_bad")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != store.StatusFailed || got.Error == "" {
		t.Fatalf("expected task marked Failed with an error, got status=%s error=%q", got.Status, got.Error)
	}
}

func TestManager_RemoveTaskDeletesRowAndTerminatesChild(t *testing.T) {
	m, st := newTestManager(t, []string{"-c", "sleep 30"})
	addRunningTask(t, st, "run_remove")

	if err := m.SpawnChild(context.Background(), "run_remove"); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	if err := m.RemoveTask(context.Background(), "run_remove"); err != nil {
		t.Fatalf("remove task: %v", err)
	}

	if _, err := st.GetActiveTask("run_remove"); err != store.ErrNotFound {
		t.Fatalf("expected task row removed, got err=%v", err)
	}
}
