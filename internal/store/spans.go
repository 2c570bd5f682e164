package store

import (
	"database/sql"

	"github.com/google/uuid"
)

// InsertSpan persists one trace span row (SPEC_FULL.md §4.L). Spans are
// write-once; there is no update path, matching how the collector only
// ever emits a span after it has fully completed.
func (s *Store) InsertSpan(span SpanData) error {
	var parentSpanID, agentID any
	if span.ParentSpanID != nil {
		parentSpanID = span.ParentSpanID.String()
	}
	if span.AgentID != nil {
		agentID = span.AgentID.String()
	}
	var endTime any
	if span.EndTime != nil {
		endTime = NowStamp(*span.EndTime)
	}

	_, err := s.db.Exec(
		`INSERT INTO trace_spans (
		   id, trace_id, parent_span_id, agent_id, span_type, name,
		   start_time, end_time, duration_ms, model, provider, tool_name,
		   tool_call_id, input_preview, output_preview, input_tokens,
		   output_tokens, finish_reason, status, level, error, metadata,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		span.ID.String(), span.TraceID.String(), parentSpanID, agentID,
		span.SpanType, span.Name, NowStamp(span.StartTime), endTime,
		span.DurationMS, span.Model, span.Provider, span.ToolName,
		span.ToolCallID, span.InputPreview, span.OutputPreview,
		span.InputTokens, span.OutputTokens, span.FinishReason, span.Status,
		span.Level, span.Error, string(span.Metadata), NowStamp(span.CreatedAt),
	)
	if err != nil {
		return wrapErr("insert_span", err)
	}
	return nil
}

// GetSpansForTrace returns every span recorded under traceID, oldest first.
func (s *Store) GetSpansForTrace(traceID uuid.UUID) ([]SpanData, error) {
	rows, err := s.db.Query(
		`SELECT id, trace_id, parent_span_id, agent_id, span_type, name,
		        duration_ms, model, provider, tool_name, tool_call_id,
		        input_preview, output_preview, input_tokens, output_tokens,
		        finish_reason, status, level, error
		 FROM trace_spans WHERE trace_id = ? ORDER BY created_at ASC`,
		traceID.String(),
	)
	if err != nil {
		return nil, wrapErr("get_spans_for_trace", err)
	}
	defer rows.Close()

	var out []SpanData
	for rows.Next() {
		var sp SpanData
		var id, tid string
		var parentSpanID, agentID sql.NullString
		if err := rows.Scan(
			&id, &tid, &parentSpanID, &agentID, &sp.SpanType, &sp.Name,
			&sp.DurationMS, &sp.Model, &sp.Provider, &sp.ToolName, &sp.ToolCallID,
			&sp.InputPreview, &sp.OutputPreview, &sp.InputTokens, &sp.OutputTokens,
			&sp.FinishReason, &sp.Status, &sp.Level, &sp.Error,
		); err != nil {
			return nil, wrapErr("get_spans_for_trace scan", err)
		}
		sp.ID, _ = uuid.Parse(id)
		sp.TraceID, _ = uuid.Parse(tid)
		if parentSpanID.Valid {
			if pid, err := uuid.Parse(parentSpanID.String); err == nil {
				sp.ParentSpanID = &pid
			}
		}
		if agentID.Valid {
			if aid, err := uuid.Parse(agentID.String); err == nil {
				sp.AgentID = &aid
			}
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}
