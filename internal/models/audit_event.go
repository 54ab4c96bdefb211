package models

// AuditEvent is one line of the override audit journal.
type AuditEvent struct {
	Timestamp       string `json:"timestamp"`
	Mode            string `json:"mode"`
	DurationMinutes int    `json:"duration_minutes"`
	Source          string `json:"source"`
	InitiatedBy     string `json:"initiated_by"`
	Hash            string `json:"hash"`
	Signature       string `json:"signature,omitempty"`
}
