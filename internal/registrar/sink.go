package registrar

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/registrar/internal/ir"
)

// EventSink receives events after their call committed.
//
// Delivery is best-effort and fire-and-forget: Emit cannot fail the call,
// and the registrar never reads events back. Events arrive in call order.
type EventSink interface {
	Emit(ctx context.Context, ev ir.Event)
}

// DiscardSink drops every event.
type DiscardSink struct{}

// Emit implements EventSink.
func (DiscardSink) Emit(context.Context, ir.Event) {}

// MultiSink fans an event out to several sinks in order.
type MultiSink []EventSink

// Emit implements EventSink.
func (m MultiSink) Emit(ctx context.Context, ev ir.Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}

// Recorder keeps every event in memory.
//
// Thread-safety: Recorder is safe for concurrent use via internal mutex.
type Recorder struct {
	mu     sync.Mutex
	events []ir.Event
}

// Emit implements EventSink.
func (r *Recorder) Emit(_ context.Context, ev ir.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []ir.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []ir.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	Logger *slog.Logger
}

// Emit implements EventSink.
func (s LogSink) Emit(ctx context.Context, ev ir.Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"seq", ev.Seq,
		"call_id", ev.CallID,
		"from", ev.From,
		"at", ev.At,
	}
	if !ev.Name.IsZero() {
		attrs = append(attrs, "name", ev.Name.String())
	}
	if !ev.SealedBid.IsZero() {
		attrs = append(attrs, "sealed_bid", ev.SealedBid.String())
	}
	logger.InfoContext(ctx, string(ev.Kind), attrs...)
}
