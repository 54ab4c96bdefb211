// Package mqtt connects the zone controller to its field devices over MQTT:
// it commands the actuator, receives sensor samples and button presses.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"zone_controller/internal/models"
)

// Topic suffixes under the configured prefix.
const (
	TopicMode   = "mode"
	TopicSensor = "sensor"
	TopicButton = "button"
	TopicStatus = "status"
)

// Bus is the subset of a broker connection the controller needs.
type Bus interface {
	// Publish sends payload to topic and waits for the broker to accept it.
	Publish(topic string, qos byte, retained bool, payload []byte) error

	// Subscribe registers handler for messages on topic.
	Subscribe(topic string, qos byte, handler func(payload []byte)) error

	// Close disconnects from the broker.
	Close() error
}

// ModePayload is the retained actuator command.
type ModePayload struct {
	Mode      string `json:"mode"`
	Origin    string `json:"origin,omitempty"`
	Cause     string `json:"cause,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SensorPayload is what the zone sensor publishes. Absent fields decode to
// nil so a sensor that lost its temperature channel is reported as missing data.
type SensorPayload struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Motion      bool     `json:"motion"`
	Timestamp   string   `json:"timestamp,omitempty"`
	Error       string   `json:"error,omitempty"`
}

var errSensorReported = errors.New("sensor reported an error")

// Topic joins prefix and suffix.
func Topic(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

// FormatModePayload creates the JSON payload for an actuator command.
func FormatModePayload(d models.Decision, at time.Time) ([]byte, error) {
	return json.Marshal(ModePayload{
		Mode:      string(d.Mode),
		Origin:    string(d.Origin),
		Cause:     d.Cause,
		Timestamp: at.UTC().Format(time.RFC3339),
	})
}

// ParseSensorPayload decodes a sensor message received at recv. A payload
// timestamp, when present and valid, wins over recv.
func ParseSensorPayload(b []byte, recv time.Time) (SensorPayload, time.Time, error) {
	var p SensorPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return SensorPayload{}, recv, fmt.Errorf("decode sensor payload: %w", err)
	}
	at := recv
	if p.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
			at = ts.UTC()
		}
	}
	return p, at, nil
}
