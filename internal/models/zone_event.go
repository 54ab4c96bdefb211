package models

import "time"

// Zone event types.
const (
	EventStart           = "START"
	EventStop            = "STOP"
	EventModeChange      = "MODE_CHANGE"
	EventFailsafe        = "FAILSAFE"
	EventInterlock       = "INTERLOCK"
	EventOverride        = "OVERRIDE"
	EventOverrideCancel  = "OVERRIDE_CANCEL"
	EventOverrideExpired = "OVERRIDE_EXPIRED"
	EventError           = "ERROR"
)

// EventTypes lists every type the controller records.
var EventTypes = []string{
	EventStart, EventStop, EventModeChange, EventFailsafe, EventInterlock,
	EventOverride, EventOverrideCancel, EventOverrideExpired, EventError,
}

// ValidEventType reports whether s is one of EventTypes.
func ValidEventType(s string) bool {
	for _, t := range EventTypes {
		if t == s {
			return true
		}
	}
	return false
}

// ZoneEvent is a single operational log entry.
type ZoneEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
