package domain

import "time"

// JobStatus enumerates the lifecycle states of a remote generation job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal states never change.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a job may move from one status to another.
// Transitions are monotonic: queued -> processing -> terminal. A status may
// repeat itself (pollers often observe the same state twice) but a terminal
// state never regresses.
func CanTransition(from, to JobStatus) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if from == JobStatusProcessing && to == JobStatusQueued {
		return false
	}
	return true
}

// Job is the provider-agnostic view of one remote generation job.
type Job struct {
	ID        string         `json:"id"`
	Status    JobStatus      `json:"status"`
	ResultURL string         `json:"resultUrl,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// JobSnapshot is a single point-in-time read of a job's status as returned by
// the job status endpoint.
type JobSnapshot struct {
	Job      Job      `json:"job"`
	Progress *float64 `json:"progress,omitempty"`
	Stage    string   `json:"stage,omitempty"`
}
