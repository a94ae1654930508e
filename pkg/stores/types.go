package stores

import "time"

// Run is one journaled execution driven by this working directory.
type Run struct {
	ExecutionID  string     `json:"execution_id"`
	DeploymentID string     `json:"deployment_id"`
	Operation    string     `json:"operation"`
	State        string     `json:"state"`
	Error        *string    `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Event is one journaled execution event.
type Event struct {
	ID          int64     `json:"id"`
	ExecutionID string    `json:"execution_id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context"` // JSON blob
}
