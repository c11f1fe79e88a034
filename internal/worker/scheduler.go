package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/db/models"
	"github.com/fieldshow/bandcatalog/internal/queue"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// Scheduler enqueues the recurring pipeline jobs: catalog-wide incremental
// syncs, promotion sweeps and maintenance runs. It goes through the same
// queue client the admin API uses, so scheduled runs get the same audit
// rows and dedup behavior as manual ones.
type Scheduler struct {
	client *queue.Client

	syncEvery    time.Duration
	sweepEvery   time.Duration
	cleanupEvery time.Duration

	wg sync.WaitGroup
}

// NewScheduler wires the periodic job scheduler. Non-positive intervals
// disable the corresponding job.
func NewScheduler(client *queue.Client, syncEvery, sweepEvery, cleanupEvery time.Duration) *Scheduler {
	return &Scheduler{
		client:       client,
		syncEvery:    syncEvery,
		sweepEvery:   sweepEvery,
		cleanupEvery: cleanupEvery,
	}
}

// Run starts the tickers and blocks until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	s.every(ctx, s.syncEvery, "scheduled sync", func() error {
		_, err := s.client.EnqueueSync(ctx, models.ScopeAll, models.ModeIncremental, false, queue.PrioritySyncScheduled)
		return err
	})

	s.every(ctx, s.sweepEvery, "promotion sweep", func() error {
		return s.client.EnqueuePromotionBatch(ctx)
	})

	s.every(ctx, s.cleanupEvery, "scheduled cleanup", func() error {
		_, err := s.client.EnqueueCleanup(ctx, "all", false)
		return err
	})

	<-ctx.Done()
	s.wg.Wait()
}

func (s *Scheduler) every(ctx context.Context, interval time.Duration, name string, enqueue func() error) {
	if interval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := enqueue(); err != nil {
					logger.Log.Warn("scheduler enqueue failed",
						zap.String("job", name),
						zap.Error(err),
					)
					continue
				}
				logger.Log.Debug("scheduler enqueued job", zap.String("job", name))
			}
		}
	}()
}
