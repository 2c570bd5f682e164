package store

import "time"

// debugRingLimit bounds the debug_messages ring (spec.md §3's DebugMessage
// "bounded ring (keep last N by id)").
const debugRingLimit = 500

// AddDebugMessage appends a timestamped operator-diagnostic line, then
// trims the ring down to the most recent debugRingLimit rows.
func (s *Store) AddDebugMessage(message string) error {
	now := NowStamp(time.Now())
	if _, err := s.db.Exec(
		`INSERT INTO debug_messages (message, timestamp) VALUES (?, ?)`,
		message, now,
	); err != nil {
		return wrapErr("add_debug_message", err)
	}

	_, err := s.db.Exec(
		`DELETE FROM debug_messages WHERE message_id NOT IN (
		   SELECT message_id FROM debug_messages ORDER BY message_id DESC LIMIT ?
		 )`,
		debugRingLimit,
	)
	if err != nil {
		return wrapErr("add_debug_message trim", err)
	}
	return nil
}

// GetDebugMessages returns the last limit messages, oldest first — the
// original queries newest-first then reverses for chronological display.
func (s *Store) GetDebugMessages(limit int) ([]DebugMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT message_id, message, timestamp FROM debug_messages
		 ORDER BY message_id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, wrapErr("get_debug_messages", err)
	}
	defer rows.Close()

	var desc []DebugMessage
	for rows.Next() {
		var m DebugMessage
		if err := rows.Scan(&m.MessageID, &m.Message, &m.Timestamp); err != nil {
			return nil, wrapErr("get_debug_messages scan", err)
		}
		desc = append(desc, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	out := make([]DebugMessage, len(desc))
	for i, m := range desc {
		out[len(desc)-1-i] = m
	}
	return out, nil
}
