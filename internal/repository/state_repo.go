package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"zone_controller/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	zoneStateRowID = 1

	insertOrUpdateStateSQL = `
		INSERT INTO zone_state (id, mode, requested_mode, origin, cause, temp_c, humidity, motion,
			sensor_status, override_active, override_source, errors, reading_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			requested_mode=excluded.requested_mode,
			origin=excluded.origin,
			cause=excluded.cause,
			temp_c=excluded.temp_c,
			humidity=excluded.humidity,
			motion=excluded.motion,
			sensor_status=excluded.sensor_status,
			override_active=excluded.override_active,
			override_source=excluded.override_source,
			errors=excluded.errors,
			reading_at=excluded.reading_at,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, mode, requested_mode, origin, cause, temp_c, humidity, motion,
			sensor_status, override_active, override_source, errors, reading_at, updated_at
		FROM zone_state WHERE id=?
	`
)

// marshalErrorCodes converts the slice to a JSON string.
func marshalErrorCodes(codes []string) (string, error) {
	b, err := json.Marshal(codes)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalErrorCodes parses a JSON string into a slice.
func unmarshalErrorCodes(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(s), &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return models.Float(n.Float64)
}

// Save upserts the zone_state row (id always 1).
func (r *StateSQLite) Save(ctx context.Context, s models.ZoneState) error {
	errorsJSON, err := marshalErrorCodes(s.ErrorCodes)
	if err != nil {
		return err
	}

	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	} else {
		updated = updated.UTC()
	}

	_, err = r.db.ExecContext(ctx, insertOrUpdateStateSQL,
		zoneStateRowID,
		string(s.Mode),
		string(s.RequestedMode),
		string(s.Origin),
		s.Cause,
		nullFloat(s.TemperatureC),
		nullFloat(s.Humidity),
		s.Motion,
		string(s.SensorStatus),
		s.OverrideActive,
		s.OverrideSource,
		errorsJSON,
		s.ReadingAt.UTC(),
		updated,
	)
	return err
}

// Load fetches the zone_state row. A zero state (ID 0) means nothing was saved yet.
func (r *StateSQLite) Load(ctx context.Context) (models.ZoneState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, zoneStateRowID)

	var (
		s          models.ZoneState
		temp, hum  sql.NullFloat64
		source     sql.NullString
		errorsJSON sql.NullString
		readingAt  sql.NullTime
	)
	if err := row.Scan(
		&s.ID,
		&s.Mode,
		&s.RequestedMode,
		&s.Origin,
		&s.Cause,
		&temp,
		&hum,
		&s.Motion,
		&s.SensorStatus,
		&s.OverrideActive,
		&source,
		&errorsJSON,
		&readingAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ZoneState{}, nil
		}
		return models.ZoneState{}, err
	}

	codes, err := unmarshalErrorCodes(errorsJSON.String)
	if err != nil {
		return models.ZoneState{}, err
	}
	s.ErrorCodes = codes
	s.TemperatureC = floatPtr(temp)
	s.Humidity = floatPtr(hum)
	s.OverrideSource = source.String
	if readingAt.Valid {
		s.ReadingAt = readingAt.Time.UTC()
	}
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
