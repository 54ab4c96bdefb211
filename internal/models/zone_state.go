package models

import "time"

// ZoneState is the latest snapshot of the control loop.
type ZoneState struct {
	ID             int          `json:"id"`
	Mode           Mode         `json:"mode"`           // final mode sent to the actuator
	RequestedMode  Mode         `json:"requested_mode"` // before the interlock
	Origin         Origin       `json:"origin"`
	Cause          string       `json:"cause"`
	TemperatureC   *float64     `json:"temperature_c,omitempty"`
	Humidity       *float64     `json:"humidity,omitempty"`
	Motion         bool         `json:"motion"`
	SensorStatus   SensorStatus `json:"sensor_status"`
	OverrideActive bool         `json:"override_active"`
	OverrideSource string       `json:"override_source,omitempty"` // manual | schedule | default
	ErrorCodes     []string     `json:"error_codes,omitempty"`
	ReadingAt      time.Time    `json:"reading_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
