package models

import "time"

// SensorStatus classifies the trustworthiness of a reading.
type SensorStatus string

const (
	SensorValid  SensorStatus = "VALID"
	SensorStale  SensorStatus = "STALE"
	SensorFrozen SensorStatus = "FROZEN"
	SensorError  SensorStatus = "ERROR"
)

// SensorReading is one sample from the zone sensors. A nil Temperature means
// the value is missing, which is distinct from an ERROR status.
type SensorReading struct {
	Status      SensorStatus `json:"status"`
	Temperature *float64     `json:"temperature,omitempty"` // °C
	Humidity    *float64     `json:"humidity,omitempty"`    // %RH
	Motion      bool         `json:"motion"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Float returns a pointer to v, for building readings.
func Float(v float64) *float64 { return &v }
