package models

import "time"

// JobStatus represents the state of an extraction job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// jobStatusRank orders statuses along the one-directional lifecycle.
var jobStatusRank = map[JobStatus]int{
	JobStatusQueued:    0,
	JobStatusRunning:   1,
	JobStatusSucceeded: 2,
	JobStatusFailed:    2,
}

// CanTransition reports whether moving from s to next respects the
// monotonic queued -> running -> terminal lifecycle. Jobs are never
// re-queued and terminal states never change. A queued job may fail
// directly when it cannot be admitted.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	return jobStatusRank[next] > jobStatusRank[s]
}

// ExtractionJob is one unit of work processing one post URL end-to-end.
//
// Jobs are created in queued state by the dispatcher, transitioned by the
// single worker, and kept for the process lifetime - they are never deleted,
// only moved to a terminal state. Error is only populated on failure.
type ExtractionJob struct {
	ID         string    `json:"id" badgerhold:"key"`
	SourceURL  string    `json:"source_url"`
	Handle     string    `json:"handle"`
	PostID     string    `json:"post_id"`
	Status     JobStatus `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	// Error is a concise description of why the job failed, only populated
	// in the failed state.
	Error string `json:"error,omitempty"`
	// Saved and Failed list the object-store keys / reasons per media item,
	// so partial outcomes stay observable after the job finishes.
	Saved  []string `json:"saved,omitempty"`
	Failed []string `json:"failed,omitempty"`
}
