package model

import "time"

// HealthStatus represents the health check status
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// FetchJob is returned when a background fetch is accepted
type FetchJob struct {
	JobID string `json:"job_id"`
}

// FetchJobState is the lifecycle state of a background fetch
type FetchJobState string

const (
	FetchJobRunning   FetchJobState = "running"
	FetchJobSucceeded FetchJobState = "succeeded"
	FetchJobFailed    FetchJobState = "failed"
)

// FetchJobStatus is the outcome of a background fetch, reported by the status endpoint
type FetchJobStatus struct {
	JobID      string        `json:"job_id"`
	State      FetchJobState `json:"state"`
	Skipped    bool          `json:"skipped,omitempty"`
	FileCount  int           `json:"file_count,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}
