package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// AddActiveTask inserts a new active_tasks row for task. It is an error to
// call this for a task_id that already exists.
func (s *Store) AddActiveTask(task *Task) error {
	now := NowStamp(time.Now())
	task.CreatedAt = now
	task.UpdatedAt = now

	payload, err := json.Marshal(task)
	if err != nil {
		return wrapErr("add_active_task marshal", err)
	}
	runIDs, _ := json.Marshal([]string{})

	_, err = s.db.Exec(
		`INSERT INTO active_tasks (task_id, payload, run_ids, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		task.RunID, string(payload), string(runIDs), now, now,
	)
	if err != nil {
		return wrapErr("add_active_task", err)
	}
	return nil
}

// GetActiveTask returns the task payload for taskID, or ErrNotFound.
func (s *Store) GetActiveTask(taskID string) (*Task, error) {
	row := s.db.QueryRow(`SELECT payload FROM active_tasks WHERE task_id = ?`, taskID)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, wrapErr("get_active_task", err)
	}
	var task Task
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return nil, wrapErr("get_active_task unmarshal", err)
	}
	return &task, nil
}

// GetAllActiveTasks returns every row in active_tasks.
func (s *Store) GetAllActiveTasks() ([]*Task, error) {
	rows, err := s.db.Query(`SELECT payload FROM active_tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, wrapErr("get_all_active_tasks", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, wrapErr("get_all_active_tasks scan", err)
		}
		var task Task
		if err := json.Unmarshal([]byte(payload), &task); err != nil {
			return nil, wrapErr("get_all_active_tasks unmarshal", err)
		}
		out = append(out, &task)
	}
	return out, rows.Err()
}

// UpdateActiveTask overwrites taskID's payload in full. Callers normally go
// through a LiveHandle (GetActiveTaskPersistent) instead of calling this
// directly, matching the original's usage pattern.
func (s *Store) UpdateActiveTask(task *Task) error {
	task.UpdatedAt = NowStamp(time.Now())
	payload, err := json.Marshal(task)
	if err != nil {
		return wrapErr("update_active_task marshal", err)
	}
	res, err := s.db.Exec(
		`UPDATE active_tasks SET payload = ?, updated_at = ? WHERE task_id = ?`,
		string(payload), task.UpdatedAt, task.RunID,
	)
	if err != nil {
		return wrapErr("update_active_task", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveActiveTask deletes taskID's row. It does not touch task_logs;
// Manager.RemoveTask in the workermanager package deletes the logs itself
// (spec.md §4.C remove_task).
func (s *Store) RemoveActiveTask(taskID string) error {
	_, err := s.db.Exec(`DELETE FROM active_tasks WHERE task_id = ?`, taskID)
	if err != nil {
		return wrapErr("remove_active_task", err)
	}
	return nil
}

// AddRunIDToTask appends runID to taskID's run_ids list, de-duplicating
// repeats and preserving order (spec.md §8 round-trip property).
func (s *Store) AddRunIDToTask(taskID, runID string) error {
	row := s.db.QueryRow(`SELECT run_ids FROM active_tasks WHERE task_id = ?`, taskID)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return wrapErr("add_run_id_to_task select", err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return wrapErr("add_run_id_to_task unmarshal", err)
	}
	for _, id := range ids {
		if id == runID {
			return nil // already present, idempotent no-op
		}
	}
	ids = append(ids, runID)
	encoded, err := json.Marshal(ids)
	if err != nil {
		return wrapErr("add_run_id_to_task marshal", err)
	}
	_, err = s.db.Exec(
		`UPDATE active_tasks SET run_ids = ?, updated_at = ? WHERE task_id = ?`,
		string(encoded), NowStamp(time.Now()), taskID,
	)
	if err != nil {
		return wrapErr("add_run_id_to_task update", err)
	}
	return nil
}

// GetTaskRunIDs returns taskID's recorded run ids, in insertion order.
func (s *Store) GetTaskRunIDs(taskID string) ([]string, error) {
	row := s.db.QueryRow(`SELECT run_ids FROM active_tasks WHERE task_id = ?`, taskID)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, wrapErr("get_task_run_ids", err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, wrapErr("get_task_run_ids unmarshal", err)
	}
	return ids, nil
}

// GetActiveTaskPersistent returns a LiveHandle mirroring taskID's payload
// as a plain map (matching the original's dict-of-JSON-fields shape), whose
// mutations debounce-flush back into active_tasks.payload. Returns
// ErrNotFound if the row does not exist.
func (s *Store) GetActiveTaskPersistent(taskID string) (*LiveHandle, error) {
	task, err := s.GetActiveTask(taskID)
	if err != nil {
		return nil, err
	}
	return s.handleForTask(taskID, task), nil
}

// CreateActiveTaskPersistent inserts task then returns a LiveHandle over it,
// in one step — used by Worker Manager.create_task (spec.md §4.C).
func (s *Store) CreateActiveTaskPersistent(task *Task) (*LiveHandle, error) {
	if err := s.AddActiveTask(task); err != nil {
		return nil, err
	}
	return s.handleForTask(task.RunID, task), nil
}

func (s *Store) handleForTask(taskID string, task *Task) *LiveHandle {
	key := "active_task:" + taskID

	s.mu.Lock()
	if h, ok := s.handles[key]; ok {
		s.mu.Unlock()
		return h
	}
	s.mu.Unlock()

	initial := taskToMap(task)
	h := NewLiveHandle(func(state map[string]any) error {
		return s.saveTaskState(taskID, state)
	}, initial, time.Duration(s.debounce.interval)*time.Millisecond)

	s.mu.Lock()
	s.handles[key] = h
	s.mu.Unlock()
	return h
}

func (s *Store) saveTaskState(taskID string, state map[string]any) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE active_tasks SET payload = ?, updated_at = ? WHERE task_id = ?`,
		string(payload), NowStamp(time.Now()), taskID,
	)
	return err
}

func taskToMap(task *Task) map[string]any {
	b, _ := json.Marshal(task)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}
