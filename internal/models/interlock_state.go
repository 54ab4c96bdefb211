package models

import "time"

// InterlockRecord is the persisted interlock dwell: the last commanded mode
// and the wall-clock instant it was entered.
type InterlockRecord struct {
	Mode           Mode      `json:"mode"`
	TransitionedAt time.Time `json:"transitioned_at"`
}
