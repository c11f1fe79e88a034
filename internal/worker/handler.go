// Package worker runs the queue servers: it binds task types to the
// pipeline services and samples queue health for the metrics endpoint.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/metrics"
	"github.com/fieldshow/bandcatalog/internal/queue"
	"github.com/fieldshow/bandcatalog/internal/service"
	"github.com/fieldshow/bandcatalog/internal/service/breaker"
	"github.com/fieldshow/bandcatalog/internal/service/quota"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// Handler dispatches queue tasks to the pipeline services.
type Handler struct {
	ingestor   *service.Ingestor
	promoter   *service.Promoter
	maintainer *service.Maintainer
}

// NewHandler creates the task handler.
func NewHandler(ingestor *service.Ingestor, promoter *service.Promoter, maintainer *service.Maintainer) *Handler {
	return &Handler{
		ingestor:   ingestor,
		promoter:   promoter,
		maintainer: maintainer,
	}
}

// HandleSyncTask processes one ingestion run.
func (h *Handler) HandleSyncTask(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.UnmarshalSyncPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := h.ingestor.Run(ctx, payload); err != nil {
		// Quota exhaustion will not clear before the retry window does, and
		// the job record is already finalized; retrying re-runs a dead job.
		if errors.Is(err, quota.ErrQuotaExceeded) || errors.Is(err, breaker.ErrCircuitOpen) {
			return errors.Join(err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

// HandlePromoteVideoTask promotes one matched video.
func (h *Handler) HandlePromoteVideoTask(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.UnmarshalPromoteVideoPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	_, err = h.promoter.PromoteOne(ctx, payload.VideoID)
	return err
}

// HandlePromoteBatchTask sweeps all eligible videos in one bounded batch.
func (h *Handler) HandlePromoteBatchTask(ctx context.Context, _ *asynq.Task) error {
	_, _, failed, err := h.promoter.RunBatch(ctx)
	if err != nil {
		return err
	}
	if failed > 0 {
		logger.Log.Warn("promotion batch had failures", zap.Int("failed", failed))
	}
	return nil
}

// HandleCleanupTask runs one maintenance pass.
func (h *Handler) HandleCleanupTask(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.UnmarshalCleanupPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	result, err := h.maintainer.Run(ctx, payload.Scope, payload.DryRun)
	if err != nil {
		return err
	}

	logger.Log.Info("cleanup task done",
		zap.String("scope", result.Scope),
		zap.Bool("dry_run", result.DryRun),
		zap.Int("affected", result.Affected()),
	)
	return nil
}

// instrument wraps a handler with duration and outcome metrics.
func instrument(taskType string, fn asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()
		err := fn(ctx, task)
		metrics.JobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())

		outcome := "completed"
		if err != nil {
			outcome = "failed"
		}
		metrics.JobsProcessed.WithLabelValues(taskType, outcome).Inc()
		return err
	}
}
