package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"zone_controller/internal/models"
)

// sqliteTimestamp is the text form of zone_events.occurred_at. Range bounds
// are bound in the same form so comparisons stay lexical.
const sqliteTimestamp = "2006-01-02 15:04:05"

const (
	insertZoneEvent  = `INSERT INTO zone_events (id, occurred_at, type, message, meta) VALUES (?, ?, ?, ?, ?)`
	selectZoneEvents = `SELECT id, occurred_at, type, message, meta FROM zone_events`
)

// EventQuery selects zone events. Zero bounds are open and an empty Type
// matches every type. A positive Limit keeps only the most recent rows.
type EventQuery struct {
	From  time.Time
	To    time.Time
	Type  string
	Limit int
}

type EventSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventSQLite(db *sql.DB) *EventSQLite {
	return &EventSQLite{db: db, now: time.Now}
}

// Append stores e. A missing id or timestamp is generated and the type is
// stored uppercased.
func (r *EventSQLite) Append(ctx context.Context, e models.ZoneEvent) error {
	id := e.EventID
	if id == "" {
		id = uuid.NewString()
	}
	at := e.OccurredAt
	if at.IsZero() {
		at = r.now()
	}
	meta, err := encodeMeta(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode event meta: %w", err)
	}

	_, err = r.db.ExecContext(ctx, insertZoneEvent,
		id,
		at.UTC().Format(sqliteTimestamp),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		e.Description,
		meta,
	)
	if err != nil {
		return fmt.Errorf("insert zone event: %w", err)
	}
	return nil
}

// List returns the events matching q, oldest first. Events within the same
// second keep their insertion order.
func (r *EventSQLite) List(ctx context.Context, q EventQuery) ([]models.ZoneEvent, error) {
	stmt, args := buildEventQuery(q)
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query zone events: %w", err)
	}
	defer rows.Close()

	out := make([]models.ZoneEvent, 0, 64)
	for rows.Next() {
		ev, err := scanZoneEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zone events: %w", err)
	}
	if q.Limit > 0 {
		slices.Reverse(out)
	}
	return out, nil
}

func buildEventQuery(q EventQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		where = append(where, cond)
		args = append(args, arg)
	}
	if !q.From.IsZero() {
		add("occurred_at >= ?", q.From.UTC().Format(sqliteTimestamp))
	}
	if !q.To.IsZero() {
		add("occurred_at <= ?", q.To.UTC().Format(sqliteTimestamp))
	}
	if typ := strings.ToUpper(strings.TrimSpace(q.Type)); typ != "" {
		add("type = ?", typ)
	}

	var b strings.Builder
	b.WriteString(selectZoneEvents)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if q.Limit > 0 {
		b.WriteString(" ORDER BY occurred_at DESC, rowid DESC LIMIT ?")
		args = append(args, q.Limit)
	} else {
		b.WriteString(" ORDER BY occurred_at ASC, rowid ASC")
	}
	return b.String(), args
}

func scanZoneEvent(rows *sql.Rows) (models.ZoneEvent, error) {
	var (
		ev   models.ZoneEvent
		meta sql.NullString
	)
	if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &meta); err != nil {
		return ev, fmt.Errorf("scan zone event: %w", err)
	}
	ev.OccurredAt = ev.OccurredAt.UTC()
	ev.Metadata = decodeMeta(meta)
	return ev, nil
}

func encodeMeta(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// decodeMeta returns the stored JSON as a generic value, or the raw text
// when it does not parse.
func decodeMeta(s sql.NullString) any {
	if !s.Valid || s.String == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return s.String
	}
	return v
}
