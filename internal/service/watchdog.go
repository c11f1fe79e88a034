package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/db/repository"
	"github.com/fieldshow/bandcatalog/internal/metrics"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// Watchdog periodically sweeps the sync job audit trail for runs that have
// been in progress longer than the configured threshold. It only reports;
// killing a job is an operator decision.
type Watchdog struct {
	jobs      repository.SyncJobRepository
	threshold time.Duration
	interval  time.Duration
}

// NewWatchdog wires the stuck-job watchdog. The sweep interval defaults to
// a quarter of the threshold.
func NewWatchdog(jobs repository.SyncJobRepository, threshold time.Duration) *Watchdog {
	interval := threshold / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Watchdog{
		jobs:      jobs,
		threshold: threshold,
		interval:  interval,
	}
}

// Run sweeps until the context is canceled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns the number of stuck jobs found.
func (w *Watchdog) Sweep(ctx context.Context) int {
	cutoff := time.Now().Add(-w.threshold)

	stuck, err := w.jobs.ListStuck(ctx, cutoff)
	if err != nil {
		logger.Log.Error("watchdog sweep failed", zap.Error(err))
		return 0
	}

	metrics.StuckJobs.Set(float64(len(stuck)))

	for _, job := range stuck {
		running := time.Since(job.StartedAt)
		fields := []zap.Field{
			zap.String("job_id", job.ID.String()),
			zap.String("scope", job.Scope),
			zap.Duration("running", running),
			zap.Duration("threshold", w.threshold),
		}
		// Escalate once a job has overshot the threshold twofold.
		if running >= 2*w.threshold {
			logger.Log.Error("sync job stuck", fields...)
		} else {
			logger.Log.Warn("sync job running long", fields...)
		}
	}

	return len(stuck)
}
