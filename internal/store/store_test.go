package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cairn_test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndGetActiveTask(t *testing.T) {
	s := newTestStore(t)
	task := &Task{
		RunID:       "task_1",
		AgentKind:   AgentKindEngineer,
		Description: "add endpoint",
		Repos:       []string{"svc"},
		Branch:      "feat/ping",
		Status:      StatusQueued,
	}
	if err := s.AddActiveTask(task); err != nil {
		t.Fatalf("add_active_task: %v", err)
	}

	got, err := s.GetActiveTask("task_1")
	if err != nil {
		t.Fatalf("get_active_task: %v", err)
	}
	if got.Status != StatusQueued || got.Description != "add endpoint" {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.UpdatedAt < got.CreatedAt {
		t.Fatalf("updated_at %q should be >= created_at %q", got.UpdatedAt, got.CreatedAt)
	}
}

func TestGetActiveTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetActiveTask("nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddRunIDToTaskOrderPreservingDedup(t *testing.T) {
	s := newTestStore(t)
	task := &Task{RunID: "task_2", AgentKind: AgentKindManager, Repos: []string{"svc"}, Status: StatusQueued}
	if err := s.AddActiveTask(task); err != nil {
		t.Fatalf("add_active_task: %v", err)
	}

	for _, id := range []string{"run_a", "run_b", "run_a", "run_c"} {
		if err := s.AddRunIDToTask("task_2", id); err != nil {
			t.Fatalf("add_run_id_to_task(%s): %v", id, err)
		}
	}

	ids, err := s.GetTaskRunIDs("task_2")
	if err != nil {
		t.Fatalf("get_task_run_ids: %v", err)
	}
	want := []string{"run_a", "run_b", "run_c"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}

func TestSaveLogLastWriterWins(t *testing.T) {
	// Open Question #2 (DESIGN.md): save_log overwrites unconditionally.
	s := newTestStore(t)
	first := &ProgressLog{TaskID: "t1", RunID: "r1", AgentType: "Engineer", Progress: []Message{{Role: "system", Content: "go"}}}
	if err := s.SaveLog("t1", "r1", "Engineer", first); err != nil {
		t.Fatalf("save_log first: %v", err)
	}
	second := &ProgressLog{TaskID: "t1", RunID: "r1", AgentType: "Engineer", Progress: []Message{{Role: "system", Content: "go"}, {Role: "assistant", Content: "done"}}}
	if err := s.SaveLog("t1", "r1", "Engineer", second); err != nil {
		t.Fatalf("save_log second: %v", err)
	}

	got, err := s.LoadLog("r1", "Engineer")
	if err != nil {
		t.Fatalf("load_log: %v", err)
	}
	if len(got.Progress) != 2 {
		t.Fatalf("expected last writer's 2 messages, got %d", len(got.Progress))
	}
}

func TestPreGenerateSubtaskIDsIdempotent(t *testing.T) {
	s := newTestStore(t)
	first, err := s.PreGenerateSubtaskIDs("fs_1", 2)
	if err != nil {
		t.Fatalf("pre_generate_subtask_ids: %v", err)
	}
	second, err := s.PreGenerateSubtaskIDs("fs_1", 2)
	if err != nil {
		t.Fatalf("pre_generate_subtask_ids (repeat): %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 ids both times, got %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i].SubtaskID != second[i].SubtaskID {
			t.Fatalf("index %d: ids differ across calls: %q vs %q", i, first[i].SubtaskID, second[i].SubtaskID)
		}
		if first[i].SubtaskIndex != i {
			t.Fatalf("index %d: got subtask_index %d", i, first[i].SubtaskIndex)
		}
	}
}

func TestLiveHandleFlushesAfterQuiescence(t *testing.T) {
	s := newTestStore(t)
	task := &Task{RunID: "task_3", AgentKind: AgentKindEngineer, Repos: []string{"svc"}, Status: StatusQueued}
	handle, err := s.CreateActiveTaskPersistent(task)
	if err != nil {
		t.Fatalf("create_active_task_persistent: %v", err)
	}

	handle.Set("status", string(StatusRunning))
	handle.Set("status", string(StatusCompleted))

	// Quiet period >= the default 100ms debounce interval.
	time.Sleep(150 * time.Millisecond)

	got, err := s.GetActiveTask("task_3")
	if err != nil {
		t.Fatalf("get_active_task: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected store to reflect last in-memory value %q, got %q", StatusCompleted, got.Status)
	}
}

func TestLiveHandleForceFlushIsSynchronous(t *testing.T) {
	s := newTestStore(t)
	task := &Task{RunID: "task_4", AgentKind: AgentKindEngineer, Repos: []string{"svc"}, Status: StatusQueued}
	handle, err := s.CreateActiveTaskPersistent(task)
	if err != nil {
		t.Fatalf("create_active_task_persistent: %v", err)
	}
	handle.Set("status", string(StatusFailed))
	handle.ForceFlush()

	got, err := s.GetActiveTask("task_4")
	if err != nil {
		t.Fatalf("get_active_task: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("expected immediate flush to status %q, got %q", StatusFailed, got.Status)
	}
}

func TestLiveHandleConcurrentWritesBounded(t *testing.T) {
	// Scenario 5 (spec.md §8): 1000 mutations from two goroutines within
	// <=50ms must not each cause a DB write; the debounce must coalesce.
	s := newTestStore(t)
	task := &Task{RunID: "task_5", AgentKind: AgentKindEngineer, Repos: []string{"svc"}, Status: StatusQueued}
	var writes int
	handle := NewLiveHandle(func(state map[string]any) error {
		writes++
		return s.saveTaskState("task_5", state)
	}, taskToMap(task), 10*time.Millisecond)
	if err := s.AddActiveTask(task); err != nil {
		t.Fatalf("add_active_task: %v", err)
	}

	done := make(chan struct{})
	mutate := func(prefix string) {
		for i := 0; i < 500; i++ {
			handle.Set("field", prefix)
		}
		done <- struct{}{}
	}
	start := time.Now()
	go mutate("a")
	go mutate("b")
	<-done
	<-done
	elapsed := time.Since(start)

	handle.ForceFlush()
	maxWrites := int(elapsed/(10*time.Millisecond)) + 2
	if writes > maxWrites {
		t.Fatalf("expected at most ~%d writes, got %d", maxWrites, writes)
	}

	if _, err := s.GetActiveTask("task_5"); err != nil {
		t.Fatalf("get_active_task: %v", err)
	}
}
