package entity

import "time"

// FailedForward mirrors the `failed_forwards` PostgreSQL table schema.
type FailedForward struct {
	RecordID             string
	FailureReason        string
	HTTPStatusCode       int
	LastAttemptTimestamp time.Time
	AttemptCount         int
}
