package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/db/models"
	"github.com/fieldshow/bandcatalog/internal/db/repository"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// MaintenanceQueue is drained by a dedicated single-worker server so
// cleanup runs never overlap each other or starve the priority queues.
const MaintenanceQueue = "maintenance"

// ErrAlreadyQueued is returned when a deduplicated task is already pending
// or running.
var ErrAlreadyQueued = errors.New("task already queued")

// Default priorities per job kind.
const (
	PrioritySyncManual    = 7 // admin-triggered, someone is waiting
	PrioritySyncScheduled = 4
	PriorityPromotion     = 5
	PriorityCleanup       = 1
)

// Client enqueues pipeline jobs onto the durable queues.
type Client struct {
	asynqClient *asynq.Client
	jobRepo     repository.SyncJobRepository
}

// NewClient creates a new queue client.
func NewClient(redisURL string, jobRepo repository.SyncJobRepository) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Client{
		asynqClient: asynq.NewClient(redisOpt),
		jobRepo:     jobRepo,
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueSync records a SyncJob audit row and enqueues the ingestion run.
// Returns the audit row so callers can hand its ID to the admin UI.
func (c *Client) EnqueueSync(ctx context.Context, scope, mode string, force bool, priority int) (*models.SyncJob, error) {
	job := models.NewSyncJob(scope, mode, force)
	if err := c.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record sync job: %w", err)
	}

	payload, err := NewSyncTask(job.ID.String(), scope, mode, force)
	if err != nil {
		return nil, err
	}
	payloadBytes, err := payload.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync payload: %w", err)
	}

	info, err := c.asynqClient.EnqueueContext(ctx, asynq.NewTask(TypeSyncRun, payloadBytes),
		asynq.Queue(QueueForPriority(priority)),
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue sync task: %w", err)
	}

	if err := c.jobRepo.SetTaskID(ctx, job.ID, info.ID); err != nil {
		// The task is already queued; a missing link is an audit gap, not a failure.
		logger.Log.Warn("failed to link sync job to task",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}

	logger.Log.Info("enqueued sync",
		zap.String("job_id", job.ID.String()),
		zap.String("task_id", info.ID),
		zap.String("scope", scope),
		zap.String("mode", mode),
		zap.Bool("force", force),
		zap.String("queue", info.Queue),
	)

	return job, nil
}

// EnqueuePromotion enqueues a single-video promotion task. The task ID is
// derived from the external video ID, so enqueueing the same video twice
// while one task is still pending collapses into one job.
func (c *Client) EnqueuePromotion(ctx context.Context, videoID string, priority int) error {
	payload, err := NewPromoteVideoTask(videoID)
	if err != nil {
		return err
	}
	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal promote payload: %w", err)
	}

	info, err := c.asynqClient.EnqueueContext(ctx, asynq.NewTask(TypePromoteVideo, payloadBytes),
		asynq.TaskID(TypePromoteVideo+":"+videoID),
		asynq.Queue(QueueForPriority(priority)),
		asynq.MaxRetry(2),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			logger.Log.Debug("promotion already pending", zap.String("video_id", videoID))
			return nil
		}
		return fmt.Errorf("failed to enqueue promotion task: %w", err)
	}

	logger.Log.Debug("enqueued promotion",
		zap.String("video_id", videoID),
		zap.String("task_id", info.ID),
	)
	return nil
}

// EnqueuePromotionBatch enqueues a batch promotion sweep that picks up any
// eligible videos missed by per-video tasks. Collapses while one is pending.
func (c *Client) EnqueuePromotionBatch(ctx context.Context) error {
	info, err := c.asynqClient.EnqueueContext(ctx, asynq.NewTask(TypePromoteBatch, nil),
		asynq.TaskID(TypePromoteBatch),
		asynq.Queue(QueueForPriority(PriorityPromotion)),
		asynq.MaxRetry(1),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue promotion batch: %w", err)
	}

	logger.Log.Debug("enqueued promotion batch", zap.String("task_id", info.ID))
	return nil
}

// EnqueueCleanup enqueues a maintenance run. Routed to the dedicated
// single-worker maintenance queue; one pending run per scope at a time.
func (c *Client) EnqueueCleanup(ctx context.Context, scope string, dryRun bool) (string, error) {
	payload, err := NewCleanupTask(scope, dryRun)
	if err != nil {
		return "", err
	}
	payloadBytes, err := payload.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal cleanup payload: %w", err)
	}

	info, err := c.asynqClient.EnqueueContext(ctx, asynq.NewTask(TypeCleanupRun, payloadBytes),
		asynq.TaskID(TypeCleanupRun+":"+scope),
		asynq.Queue(MaintenanceQueue),
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return "", fmt.Errorf("cleanup for scope %q: %w", scope, ErrAlreadyQueued)
		}
		return "", fmt.Errorf("failed to enqueue cleanup task: %w", err)
	}

	logger.Log.Info("enqueued cleanup",
		zap.String("task_id", info.ID),
		zap.String("scope", scope),
		zap.Bool("dry_run", dryRun),
	)
	return info.ID, nil
}
