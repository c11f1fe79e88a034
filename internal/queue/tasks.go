package queue

import (
	"encoding/json"
	"fmt"
)

// Task types processed by the worker.
const (
	TypeSyncRun      = "ingest:sync"
	TypePromoteVideo = "promotion:video"
	TypePromoteBatch = "promotion:batch"
	TypeCleanupRun   = "maintenance:cleanup"
)

// Priority tiers. Numeric priorities attached at enqueue time map onto the
// weighted queues the worker drains.
const (
	TierCritical = "critical"
	TierHigh     = "high"
	TierNormal   = "default"
	TierLow      = "low"
)

// Queue weights: a critical job is six times as likely to be picked as a
// low one, but low never starves.
var QueueWeights = map[string]int{
	TierCritical: 6,
	TierHigh:     3,
	TierNormal:   2,
	TierLow:      1,
}

// QueueForPriority maps a numeric priority to a tier queue name. Higher
// numbers mean more urgent.
func QueueForPriority(priority int) string {
	switch {
	case priority >= 9:
		return TierCritical
	case priority >= 6:
		return TierHigh
	case priority >= 3:
		return TierNormal
	default:
		return TierLow
	}
}

// SyncPayload is the payload for ingestion runs.
type SyncPayload struct {
	JobID string `json:"job_id"` // sync_jobs row created at trigger time
	Scope string `json:"scope"`  // band ID or "all"
	Mode  string `json:"mode"`   // INCREMENTAL or FULL
	Force bool   `json:"force"`
}

// PromoteVideoPayload is the payload for single-video promotion tasks.
type PromoteVideoPayload struct {
	VideoID string `json:"video_id"`
}

// CleanupPayload is the payload for maintenance runs.
type CleanupPayload struct {
	Scope  string `json:"scope"` // duplicates, irrelevant, deleted, all
	DryRun bool   `json:"dry_run"`
}

// NewSyncTask validates and builds a sync payload.
func NewSyncTask(jobID, scope, mode string, force bool) (*SyncPayload, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}
	if scope == "" {
		return nil, fmt.Errorf("scope is required")
	}
	return &SyncPayload{JobID: jobID, Scope: scope, Mode: mode, Force: force}, nil
}

// Marshal serializes the payload to JSON.
func (p *SyncPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalSyncPayload deserializes JSON to payload.
func UnmarshalSyncPayload(data []byte) (*SyncPayload, error) {
	var payload SyncPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync payload: %w", err)
	}
	return &payload, nil
}

// NewPromoteVideoTask validates and builds a promotion payload.
func NewPromoteVideoTask(videoID string) (*PromoteVideoPayload, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video ID is required")
	}
	return &PromoteVideoPayload{VideoID: videoID}, nil
}

// Marshal serializes the payload to JSON.
func (p *PromoteVideoPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalPromoteVideoPayload deserializes JSON to payload.
func UnmarshalPromoteVideoPayload(data []byte) (*PromoteVideoPayload, error) {
	var payload PromoteVideoPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal promote payload: %w", err)
	}
	return &payload, nil
}

// NewCleanupTask validates and builds a cleanup payload.
func NewCleanupTask(scope string, dryRun bool) (*CleanupPayload, error) {
	switch scope {
	case "duplicates", "irrelevant", "deleted", "all":
	default:
		return nil, fmt.Errorf("invalid cleanup scope: %q", scope)
	}
	return &CleanupPayload{Scope: scope, DryRun: dryRun}, nil
}

// Marshal serializes the payload to JSON.
func (p *CleanupPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalCleanupPayload deserializes JSON to payload.
func UnmarshalCleanupPayload(data []byte) (*CleanupPayload, error) {
	var payload CleanupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cleanup payload: %w", err)
	}
	return &payload, nil
}
