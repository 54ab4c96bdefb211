package models

import "time"

// ExpiryLayout is the on-store format of OverrideRecord.ExpiresAt.
const ExpiryLayout = time.RFC3339Nano

// OverrideRecord is the current manual override. ExpiresAt is kept in its
// stored textual form; empty means no expiry.
type OverrideRecord struct {
	Mode        Mode   `json:"mode"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	Source      string `json:"source"`
	InitiatedBy string `json:"initiated_by"`
}

// Expiry parses ExpiresAt. ok is false when the record has no expiry.
func (r OverrideRecord) Expiry() (t time.Time, ok bool, err error) {
	if r.ExpiresAt == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(ExpiryLayout, r.ExpiresAt)
	if err != nil {
		return time.Time{}, true, err
	}
	return t, true, nil
}

// ScheduleRule maps a (weekday, hour) slot to a mode. Weekday 0 is Monday.
type ScheduleRule struct {
	Weekday int    `yaml:"weekday" json:"weekday"`
	Hour    int    `yaml:"hour" json:"hour"`
	Mode    string `yaml:"mode" json:"mode"`
}
