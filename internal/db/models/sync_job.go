package models

import (
	"time"

	"github.com/google/uuid"
)

// Sync job scope and mode values.
const (
	ScopeAll = "all"

	ModeIncremental = "INCREMENTAL"
	ModeFull        = "FULL"
)

// Sync job terminal and running statuses.
const (
	JobStatusInProgress = "IN_PROGRESS"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)

// SyncJob is the durable audit record of one ingestion run. Errors is an
// append-only log of per-item failures.
type SyncJob struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	TaskID        *string    `db:"task_id" json:"task_id,omitempty"`
	Scope         string     `db:"scope" json:"scope"`
	Mode          string     `db:"mode" json:"mode"`
	Force         bool       `db:"force" json:"force"`
	Status        string     `db:"status" json:"status"`
	VideosFound   int        `db:"videos_found" json:"videos_found"`
	VideosAdded   int        `db:"videos_added" json:"videos_added"`
	VideosUpdated int        `db:"videos_updated" json:"videos_updated"`
	Errors        []string   `db:"errors" json:"errors"`
	StartedAt     time.Time  `db:"started_at" json:"started_at"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// NewSyncJob creates an in-progress job record for a triggered run.
func NewSyncJob(scope, mode string, force bool) *SyncJob {
	now := time.Now()
	return &SyncJob{
		ID:        uuid.New(),
		Scope:     scope,
		Mode:      mode,
		Force:     force,
		Status:    JobStatusInProgress,
		Errors:    []string{},
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Duration returns the wall-clock duration of a finished job, or the time
// elapsed so far for a running one.
func (j *SyncJob) Duration() time.Duration {
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(j.StartedAt)
	}
	return time.Since(j.StartedAt)
}
