package rest

import "time"

// ExecutionStatus values reported by the management server.
type ExecutionStatus string

const (
	ExecutionStatusPending    ExecutionStatus = "pending"
	ExecutionStatusStarted    ExecutionStatus = "started"
	ExecutionStatusCancelled  ExecutionStatus = "cancelled"
	ExecutionStatusTerminated ExecutionStatus = "terminated"
	ExecutionStatusFailed     ExecutionStatus = "failed"
)

// Terminal reports whether the server will make no further progress on the
// execution.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusTerminated, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	}
	return false
}

// Blueprint is a blueprint record on the management server.
type Blueprint struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Deployment is a deployment record on the management server.
type Deployment struct {
	ID          string    `json:"id"`
	BlueprintID string    `json:"blueprint_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Workflow is a named workflow available on a deployment.
type Workflow struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Execution is one invocation of a workflow operation on a deployment.
type Execution struct {
	ID           string          `json:"id"`
	DeploymentID string          `json:"deployment_id"`
	Operation    string          `json:"operation"`
	Status       ExecutionStatus `json:"status"`
	Error        string          `json:"error,omitempty"`
}

// Event is one progress event emitted by a running execution. Context is the
// structured form; Message is the rendered text shown to the operator.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// EventPage is one batch of events fetched since a checkpoint. NextOffset is
// the checkpoint to resume from on the next poll.
type EventPage struct {
	Events     []Event `json:"events"`
	NextOffset int     `json:"next_offset"`
}

// ServerStatus is the management server's self-reported health.
type ServerStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
