package service

import (
	"time"

	"zone_controller/internal/models"
	"zone_controller/internal/override"
)

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "START", "STOP", "MODE_CHANGE", "FAILSAFE", "INTERLOCK", "OVERRIDE", ...
	// Limit keeps the most recent events; zero means no limit.
	Limit int
}

// OverrideParams is a manual override request from an operator.
type OverrideParams struct {
	Mode            string
	DurationMinutes int
	Source          string // defaults to "api"
	InitiatedBy     string
}

// OverrideStatus reports the effective override and the stored manual record.
type OverrideStatus struct {
	Active bool                   `json:"active"`
	Mode   models.Mode            `json:"mode,omitempty"`
	Source override.Source        `json:"source,omitempty"`
	Manual *models.OverrideRecord `json:"manual,omitempty"`
}

// HealthReport backs /healthz.
type HealthReport struct {
	Healthy       bool                `json:"-"`
	Status        string              `json:"status"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Mode          models.Mode         `json:"mode"`
	SensorStatus  models.SensorStatus `json:"sensor_status"`
	LastReadingAt *time.Time          `json:"last_reading_at,omitempty"`
	Errors        []string            `json:"errors,omitempty"`
}
