package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/registrar/internal/ir"
)

// AppendEvent writes an event to the log and returns its content-addressed ID.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - re-appending the same
// event is silently ignored.
func (s *Store) AppendEvent(ctx context.Context, ev ir.Event) (string, error) {
	payload, err := marshalEvent(ev)
	if err != nil {
		return "", fmt.Errorf("append event: %w", err)
	}
	id := ir.EventID(payload)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, seq, call_id, kind, name, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		ev.Seq,
		ev.CallID,
		string(ev.Kind),
		nullableHash(ev.Name),
		payload,
	)
	if err != nil {
		return "", fmt.Errorf("append event: %w", err)
	}
	return id, nil
}

// ReadEvents returns every logged event ordered by seq.
// Returns an empty slice (not nil) when the log is empty.
func (s *Store) ReadEvents(ctx context.Context) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return collectEvents(rows)
}

// ReadEventsForName returns the events that reference name, ordered by seq.
func (s *Store) ReadEventsForName(ctx context.Context, name ir.Hash) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM events
		WHERE name = ?
		ORDER BY seq ASC
	`, name[:])
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return collectEvents(rows)
}

// LastEventSeq returns the highest logged seq, or 0 for an empty log.
// Used to resume the registrar's event counter across restarts.
func (s *Store) LastEventSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last event seq: %w", err)
	}
	return seq.Int64, nil
}

func collectEvents(rows *sql.Rows) ([]ir.Event, error) {
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev, err := unmarshalEvent(payload)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// EventLog is an event sink that persists every event it receives.
//
// Delivery is fire-and-forget: a failed append is logged and dropped, it
// never fails the registrar call that produced the event.
type EventLog struct {
	store  *Store
	logger *slog.Logger
}

// NewEventLog creates a sink writing into s. A nil logger uses slog.Default().
func NewEventLog(s *Store, logger *slog.Logger) *EventLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLog{store: s, logger: logger}
}

// Emit appends ev to the log.
func (l *EventLog) Emit(ctx context.Context, ev ir.Event) {
	if _, err := l.store.AppendEvent(ctx, ev); err != nil {
		l.logger.Error("dropping event", "kind", ev.Kind, "seq", ev.Seq, "error", err)
	}
}
