package response

import "time"

type SubmitHarvestResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Target  string `json:"target"`
}

// HarvestStatusResponse is a DTO for entity.RunStatus.
type HarvestStatusResponse struct {
	Target        string     `json:"target"`
	CurrentStatus string     `json:"current_status"` // "queued", "running", "completed", "failed"
	Accepted      int        `json:"accepted"`
	Persisted     int        `json:"persisted"`
	Forwarded     int        `json:"forwarded"`
	ForwardFailed int        `json:"forward_failed"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
}
