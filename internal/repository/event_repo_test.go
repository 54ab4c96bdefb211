package repository_test

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"zone_controller/internal/models"
	"zone_controller/internal/repository"
)

func TestEventSQLite_Append_FillsIDAndNormalizesType(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	nonEmpty := sqlmockArgumentFunc(func(v driver.Value) bool {
		s, ok := v.(string)
		return ok && s != ""
	})
	at := time.Date(2025, 1, 6, 10, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO zone_events")).
		WithArgs(nonEmpty, "2025-01-06 08:30:00", "MODE_CHANGE", "Mode changed to HEAT_ON", `{"from":"OFF","to":"HEAT_ON"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repository.NewEventSQLite(db).Append(context.Background(), models.ZoneEvent{
		OccurredAt:  at,
		Type:        " mode_change ",
		Description: "Mode changed to HEAT_ON",
		Metadata:    map[string]string{"from": "OFF", "to": "HEAT_ON"},
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventSQLite_List_BuildsFilters(t *testing.T) {
	tests := []struct {
		name  string
		q     repository.EventQuery
		query string
		args  []driver.Value
		want  []string
	}{
		{
			name:  "no filters",
			query: "SELECT id, occurred_at, type, message, meta FROM zone_events ORDER BY occurred_at ASC, rowid ASC",
			want:  []string{"e1", "e2"},
		},
		{
			name: "range and type",
			q: repository.EventQuery{
				From: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
				Type: "override",
			},
			query: "SELECT id, occurred_at, type, message, meta FROM zone_events WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC, rowid ASC",
			args:  []driver.Value{"2025-01-06 00:00:00", "2025-01-07 00:00:00", "OVERRIDE"},
			want:  []string{"e1", "e2"},
		},
		{
			name:  "limit reads newest first and returns oldest first",
			q:     repository.EventQuery{Limit: 2},
			query: "SELECT id, occurred_at, type, message, meta FROM zone_events ORDER BY occurred_at DESC, rowid DESC LIMIT ?",
			args:  []driver.Value{int64(2)},
			want:  []string{"e2", "e1"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New(): %v", err)
			}
			defer db.Close()

			occurred := time.Date(2025, 1, 6, 8, 30, 0, 0, time.UTC)
			rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
				AddRow("e1", occurred, "OVERRIDE", "Override applied", `{"mode":"FAN_ONLY"}`).
				AddRow("e2", occurred, "ERROR", "raw meta", `not-json`)
			exp := mock.ExpectQuery(regexp.QuoteMeta(tt.query))
			if len(tt.args) > 0 {
				exp = exp.WithArgs(tt.args...)
			}
			exp.WillReturnRows(rows)

			out, err := repository.NewEventSQLite(db).List(context.Background(), tt.q)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(out) != len(tt.want) {
				t.Fatalf("expected %d events, got %d", len(tt.want), len(out))
			}
			for i, id := range tt.want {
				if out[i].EventID != id {
					t.Fatalf("out[%d].EventID = %q, want %q", i, out[i].EventID, id)
				}
			}
			for _, ev := range out {
				switch ev.EventID {
				case "e1":
					if m, ok := ev.Metadata.(map[string]any); !ok || m["mode"] != "FAN_ONLY" {
						t.Fatalf("decoded metadata = %#v", ev.Metadata)
					}
				case "e2":
					if ev.Metadata != "not-json" {
						t.Fatalf("raw metadata = %#v", ev.Metadata)
					}
				}
			}
		})
	}
}

func TestEventSQLite_Append_RejectsUnencodableMeta(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	err = repository.NewEventSQLite(db).Append(context.Background(), models.ZoneEvent{
		Type:     models.EventError,
		Metadata: map[string]any{"bad": make(chan int)},
	})
	if err == nil {
		t.Fatal("expected encode error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected statements: %v", err)
	}
}
