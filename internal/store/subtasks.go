package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PreGenerateSubtaskIDs deterministically and idempotently allocates n
// sub-task ids for fullstackRunID, of the form
// "pm_subtask_{epoch_seconds}_{index}" (spec.md §4.H). Re-calling with the
// same (fullstackRunID, n) after the first allocation returns the same ids
// — existing (fullstack_run_id, index) rows are left untouched rather than
// regenerated, since the epoch is baked into the id at first-allocation
// time only.
func (s *Store) PreGenerateSubtaskIDs(fullstackRunID string, n int) ([]SubtaskRecord, error) {
	existing, err := s.GetSubtaskIDs(fullstackRunID)
	if err != nil {
		return nil, err
	}
	byIndex := make(map[int]SubtaskRecord, len(existing))
	for _, r := range existing {
		byIndex[r.SubtaskIndex] = r
	}

	epoch := time.Now().Unix()
	out := make([]SubtaskRecord, n)
	for i := 0; i < n; i++ {
		if r, ok := byIndex[i]; ok {
			out[i] = r
			continue
		}
		rec := SubtaskRecord{
			FullstackRunID: fullstackRunID,
			SubtaskIndex:   i,
			SubtaskID:      fmt.Sprintf("pm_subtask_%d_%d", epoch, i),
			// AgentType is hardcoded to "PM" for now, matching the original
			// source's pre_generate_subtask_ids (agent kind of the
			// spawning Manager task is not yet threaded through).
			AgentType: "PM",
		}
		if _, err := s.db.Exec(
			`INSERT INTO subtask_ids (fullstack_run_id, subtask_index, subtask_id, agent_type)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(fullstack_run_id, subtask_index) DO UPDATE SET
			   subtask_id = excluded.subtask_id, agent_type = excluded.agent_type`,
			rec.FullstackRunID, rec.SubtaskIndex, rec.SubtaskID, rec.AgentType,
		); err != nil {
			return nil, wrapErr("pre_generate_subtask_ids", err)
		}
		out[i] = rec
	}
	return out, nil
}

// GetSubtaskIDs returns every allocated sub-task id for fullstackRunID,
// ordered by index.
func (s *Store) GetSubtaskIDs(fullstackRunID string) ([]SubtaskRecord, error) {
	rows, err := s.db.Query(
		`SELECT fullstack_run_id, subtask_index, subtask_id, agent_type
		 FROM subtask_ids WHERE fullstack_run_id = ? ORDER BY subtask_index ASC`,
		fullstackRunID,
	)
	if err != nil {
		return nil, wrapErr("get_subtask_ids", err)
	}
	defer rows.Close()

	var out []SubtaskRecord
	for rows.Next() {
		var r SubtaskRecord
		if err := rows.Scan(&r.FullstackRunID, &r.SubtaskIndex, &r.SubtaskID, &r.AgentType); err != nil {
			return nil, wrapErr("get_subtask_ids scan", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSubtaskID returns the single allocated id for (fullstackRunID, index).
func (s *Store) GetSubtaskID(fullstackRunID string, index int) (*SubtaskRecord, error) {
	row := s.db.QueryRow(
		`SELECT fullstack_run_id, subtask_index, subtask_id, agent_type
		 FROM subtask_ids WHERE fullstack_run_id = ? AND subtask_index = ?`,
		fullstackRunID, index,
	)
	var r SubtaskRecord
	if err := row.Scan(&r.FullstackRunID, &r.SubtaskIndex, &r.SubtaskID, &r.AgentType); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, wrapErr("get_subtask_id", err)
	}
	return &r, nil
}
