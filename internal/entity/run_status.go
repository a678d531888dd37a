package entity

import "time"

type RunStatus struct {
	Target        string
	CurrentStatus string // "queued", "running", "completed", "failed", "not_found"
	Accepted      int
	Persisted     int
	Forwarded     int
	ForwardFailed int
	StartedAt     *time.Time
	FinishedAt    *time.Time
	FailureReason string
}

const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
	RunNotFound  = "not_found"
)
