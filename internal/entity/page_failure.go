package entity

import "time"

// PageFailure records why one URL of a snapshot could not be captured.
type PageFailure struct {
	ID             int64     `json:"-"`
	SnapshotID     string    `json:"snapshot_id"`
	URL            string    `json:"url"`
	ErrorType      string    `json:"error_type"`
	FailureReason  string    `json:"failure_reason"`
	HTTPStatusCode int       `json:"http_status_code,omitempty"`
	AttemptedAt    time.Time `json:"attempted_at"`
}
