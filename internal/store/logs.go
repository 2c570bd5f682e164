package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// SaveLog inserts or replaces the (run_id, agent_type) row with logData.
// This is unconditional last-writer-wins, matching task_storage.py's
// save_log exactly (Open Question #2 in DESIGN.md) — callers that need
// append semantics must read-modify-write via LoadLog first, or prefer a
// LiveHandle (CreateLogPersistent) which does this for them.
func (s *Store) SaveLog(taskID, runID, agentType string, logData *ProgressLog) error {
	now := NowStamp(time.Now())
	logData.LastUpdated = now
	payload, err := json.Marshal(logData)
	if err != nil {
		return wrapErr("save_log marshal", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO task_logs (task_id, run_id, agent_type, log_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, agent_type) DO UPDATE SET
		   task_id = excluded.task_id,
		   log_data = excluded.log_data,
		   updated_at = excluded.updated_at`,
		taskID, runID, agentType, string(payload), now, now,
	)
	if err != nil {
		return wrapErr("save_log", err)
	}
	return nil
}

// LoadLog returns the most-recently-updated row for (run_id, agent_type).
func (s *Store) LoadLog(runID, agentType string) (*ProgressLog, error) {
	row := s.db.QueryRow(
		`SELECT log_data FROM task_logs WHERE run_id = ? AND agent_type = ?
		 ORDER BY updated_at DESC LIMIT 1`,
		runID, agentType,
	)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, wrapErr("load_log", err)
	}
	var log ProgressLog
	if err := json.Unmarshal([]byte(raw), &log); err != nil {
		return nil, wrapErr("load_log unmarshal", err)
	}
	return &log, nil
}

// GetAllLogsForTask returns every log row for taskID, newest first.
func (s *Store) GetAllLogsForTask(taskID string) ([]*ProgressLog, error) {
	return s.queryLogs(`SELECT log_data FROM task_logs WHERE task_id = ? ORDER BY created_at DESC`, taskID)
}

// GetAllLogsForRun returns every log row for runID, newest first.
func (s *Store) GetAllLogsForRun(runID string) ([]*ProgressLog, error) {
	return s.queryLogs(`SELECT log_data FROM task_logs WHERE run_id = ? ORDER BY created_at DESC`, runID)
}

func (s *Store) queryLogs(query, arg string) ([]*ProgressLog, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, wrapErr("query_logs", err)
	}
	defer rows.Close()

	var out []*ProgressLog
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, wrapErr("query_logs scan", err)
		}
		var log ProgressLog
		if err := json.Unmarshal([]byte(raw), &log); err != nil {
			return nil, wrapErr("query_logs unmarshal", err)
		}
		out = append(out, &log)
	}
	return out, rows.Err()
}

// CreateLogPersistent returns a LiveHandle mirroring the (run_id,
// agent_type) log as a plain map, seeded from the existing row if present
// (or an empty progress list otherwise), whose mutations debounce-flush
// back through SaveLog.
func (s *Store) CreateLogPersistent(taskID, runID, agentType string) (*LiveHandle, error) {
	key := "log:" + runID + ":" + agentType

	s.mu.Lock()
	if h, ok := s.handles[key]; ok {
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	existing, err := s.LoadLog(runID, agentType)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	if existing == nil {
		existing = &ProgressLog{
			TaskID:    taskID,
			RunID:     runID,
			AgentType: agentType,
			Progress:  []Message{},
		}
	}

	b, _ := json.Marshal(existing)
	var initial map[string]any
	_ = json.Unmarshal(b, &initial)

	h := NewLiveHandle(func(state map[string]any) error {
		return s.saveLogState(taskID, runID, agentType, state)
	}, initial, time.Duration(s.debounce.interval)*time.Millisecond)

	s.mu.Lock()
	s.handles[key] = h
	s.mu.Unlock()
	return h, nil
}

func (s *Store) saveLogState(taskID, runID, agentType string, state map[string]any) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	var log ProgressLog
	if err := json.Unmarshal(b, &log); err != nil {
		return err
	}
	return s.SaveLog(taskID, runID, agentType, &log)
}
