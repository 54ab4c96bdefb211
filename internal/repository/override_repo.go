package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zone_controller/internal/models"
	"zone_controller/internal/override"
)

// OverrideSQLite persists the manual override so it survives restarts.
type OverrideSQLite struct {
	db *sql.DB
}

func NewOverrideSQLite(db *sql.DB) *OverrideSQLite {
	return &OverrideSQLite{db: db}
}

var _ override.Store = (*OverrideSQLite)(nil)

const (
	overrideRowID = 1

	upsertOverrideSQL = `
		INSERT INTO override_record (id, mode, expires_at, source, initiated_by)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			expires_at=excluded.expires_at,
			source=excluded.source,
			initiated_by=excluded.initiated_by
	`
	selectOverrideSQL = `SELECT mode, expires_at, source, initiated_by FROM override_record WHERE id=?`
	deleteOverrideSQL = `DELETE FROM override_record WHERE id=?`
)

// Get returns the stored override, or (nil, nil) when there is none.
func (r *OverrideSQLite) Get(ctx context.Context) (*models.OverrideRecord, error) {
	var (
		rec     models.OverrideRecord
		expires sql.NullString
	)
	err := r.db.QueryRowContext(ctx, selectOverrideSQL, overrideRowID).
		Scan(&rec.Mode, &expires, &rec.Source, &rec.InitiatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select override: %w", err)
	}
	rec.ExpiresAt = expires.String
	return &rec, nil
}

// Set replaces the stored override.
func (r *OverrideSQLite) Set(ctx context.Context, rec models.OverrideRecord) error {
	var expires sql.NullString
	if rec.ExpiresAt != "" {
		expires = sql.NullString{String: rec.ExpiresAt, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, upsertOverrideSQL,
		overrideRowID, string(rec.Mode), expires, rec.Source, rec.InitiatedBy,
	); err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	return nil
}

// Clear removes the stored override. Clearing an empty store is not an error.
func (r *OverrideSQLite) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, deleteOverrideSQL, overrideRowID); err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	return nil
}
