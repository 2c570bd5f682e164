// Package tracing implements the lightweight span collector referenced by
// the Agent Executor (SPEC_FULL.md §4.L). It reconstructs the producer side
// of the contract observed in the teacher's internal/agent/loop_tracing.go
// (tracing.CollectorFromContext, tracing.TraceIDFromContext,
// tracing.ParentSpanIDFromContext, Collector.EmitSpan, Collector.Verbose) —
// the package defining it was absent from the retrieved pack; see
// DESIGN.md.
package tracing

import (
	"context"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/cairnkernel/internal/store"
)

// Collector receives completed spans and persists them.
type Collector struct {
	st      *store.Store
	verbose bool
}

// NewCollector returns a Collector writing spans into st. verbose controls
// whether full message/input/output bodies are kept in previews (vs. a
// short truncation) — matching the teacher's GOCLAW_TRACE_VERBOSE switch.
func NewCollector(st *store.Store, verbose bool) *Collector {
	return &Collector{st: st, verbose: verbose}
}

// Verbose reports whether full previews should be recorded.
func (c *Collector) Verbose() bool { return c.verbose }

// EmitSpan persists span. Store errors are intentionally not propagated —
// a tracing failure must never abort the agent loop it is observing.
func (c *Collector) EmitSpan(span store.SpanData) {
	if span.ID == uuid.Nil {
		span.ID = uuid.New()
	}
	_ = c.st.InsertSpan(span)
}

type ctxKey int

const (
	ctxKeyCollector ctxKey = iota
	ctxKeyTraceID
	ctxKeyParentSpanID
	ctxKeyAnnounceParentSpanID
)

// WithCollector attaches a Collector to ctx.
func WithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, ctxKeyCollector, c)
}

// CollectorFromContext returns the Collector attached to ctx, or nil.
func CollectorFromContext(ctx context.Context) *Collector {
	c, _ := ctx.Value(ctxKeyCollector).(*Collector)
	return c
}

// WithTraceID attaches the active trace id to ctx.
func WithTraceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKeyTraceID, id)
}

// TraceIDFromContext returns the trace id attached to ctx, or uuid.Nil.
func TraceIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxKeyTraceID).(uuid.UUID)
	return id
}

// WithParentSpanID attaches the span id that child spans should nest under.
func WithParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKeyParentSpanID, id)
}

// ParentSpanIDFromContext returns the parent span id attached to ctx, or
// uuid.Nil.
func ParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxKeyParentSpanID).(uuid.UUID)
	return id
}

// WithAnnounceParentSpanID attaches the root span id of a delegating run,
// used to nest a delegated sub-agent's span tree under its caller.
func WithAnnounceParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKeyAnnounceParentSpanID, id)
}

// AnnounceParentSpanIDFromContext returns the announce-parent span id, or
// uuid.Nil.
func AnnounceParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxKeyAnnounceParentSpanID).(uuid.UUID)
	return id
}
