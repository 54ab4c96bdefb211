package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zone_controller/internal/models"
)

type InterlockSQLite struct {
	db *sql.DB
}

func NewInterlockSQLite(db *sql.DB) *InterlockSQLite {
	return &InterlockSQLite{db: db}
}

const (
	interlockRowID = 1

	upsertInterlockSQL = `
		INSERT INTO interlock_state (id, mode, transitioned_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			transitioned_at=excluded.transitioned_at
	`
	selectInterlockSQL = `SELECT mode, transitioned_at FROM interlock_state WHERE id=?`
)

// SaveInterlock records the last interlock transition.
func (r *InterlockSQLite) SaveInterlock(ctx context.Context, rec models.InterlockRecord) error {
	if _, err := r.db.ExecContext(ctx, upsertInterlockSQL,
		interlockRowID, string(rec.Mode), rec.TransitionedAt.UTC(),
	); err != nil {
		return fmt.Errorf("upsert interlock state: %w", err)
	}
	return nil
}

// LoadInterlock returns the last saved transition, or (nil, nil) if none.
func (r *InterlockSQLite) LoadInterlock(ctx context.Context) (*models.InterlockRecord, error) {
	var rec models.InterlockRecord
	err := r.db.QueryRowContext(ctx, selectInterlockSQL, interlockRowID).Scan(&rec.Mode, &rec.TransitionedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select interlock state: %w", err)
	}
	rec.TransitionedAt = rec.TransitionedAt.UTC()
	return &rec, nil
}
