// Package repository persists controller state in SQLite.
package repository

import (
	"context"
	"database/sql"

	"zone_controller/internal/models"
)

// Authorization stores HTTP adapter users.
type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// StateRepo keeps the last published zone snapshot.
type StateRepo interface {
	Save(ctx context.Context, s models.ZoneState) error
	Load(ctx context.Context) (models.ZoneState, error)
}

// EventRepo is the append-only operational event log.
type EventRepo interface {
	Append(ctx context.Context, e models.ZoneEvent) error
	List(ctx context.Context, q EventQuery) ([]models.ZoneEvent, error)
}

// OverrideRepo holds the single manual override row.
type OverrideRepo interface {
	Get(ctx context.Context) (*models.OverrideRecord, error)
	Set(ctx context.Context, rec models.OverrideRecord) error
	Clear(ctx context.Context) error
}

// InterlockRepo persists the dwell state when interlock persistence is on.
type InterlockRepo interface {
	SaveInterlock(ctx context.Context, rec models.InterlockRecord) error
	LoadInterlock(ctx context.Context) (*models.InterlockRecord, error)
}

type Repository struct {
	StateRepo     StateRepo
	EventRepo     EventRepo
	OverrideRepo  OverrideRepo
	InterlockRepo InterlockRepo
	Auth          Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo:     NewStateSQLite(db),
		EventRepo:     NewEventSQLite(db),
		OverrideRepo:  NewOverrideSQLite(db),
		InterlockRepo: NewInterlockSQLite(db),
		Auth:          NewUserRepository(db),
	}
}
