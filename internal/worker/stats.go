package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/metrics"
	"github.com/fieldshow/bandcatalog/internal/queue"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// StatsSampler periodically polls the queue inspector and exports per-queue
// depth, share and latency gauges.
type StatsSampler struct {
	inspector *asynq.Inspector
	interval  time.Duration
	queues    []string
}

// NewStatsSampler creates a sampler covering the priority tiers and the
// maintenance queue.
func NewStatsSampler(redisURL string, interval time.Duration) (*StatsSampler, error) {
	redisOpt, err := queue.ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if interval <= 0 {
		interval = 15 * time.Second
	}

	queues := make([]string, 0, len(queue.QueueWeights)+1)
	for name := range queue.QueueWeights {
		queues = append(queues, name)
	}
	queues = append(queues, queue.MaintenanceQueue)

	return &StatsSampler{
		inspector: asynq.NewInspector(redisOpt),
		interval:  interval,
		queues:    queues,
	}, nil
}

// Run samples until the context is canceled.
func (s *StatsSampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sample()
		}
	}
}

type queueCounts struct {
	pending   int
	active    int
	scheduled int
	retry     int
}

// Sample takes one reading of every queue.
func (s *StatsSampler) Sample() {
	counts := make(map[string]queueCounts, len(s.queues))
	totals := queueCounts{}

	for _, name := range s.queues {
		info, err := s.inspector.GetQueueInfo(name)
		if err != nil {
			// A queue that has never seen a task does not exist yet.
			continue
		}

		c := queueCounts{
			pending:   info.Pending,
			active:    info.Active,
			scheduled: info.Scheduled,
			retry:     info.Retry,
		}
		counts[name] = c

		totals.pending += c.pending
		totals.active += c.active
		totals.scheduled += c.scheduled
		totals.retry += c.retry

		metrics.QueueLatency.WithLabelValues(name).Set(info.Latency.Seconds())
	}

	for name, c := range counts {
		setQueueGauges(name, "pending", c.pending, totals.pending)
		setQueueGauges(name, "active", c.active, totals.active)
		setQueueGauges(name, "scheduled", c.scheduled, totals.scheduled)
		setQueueGauges(name, "retry", c.retry, totals.retry)
	}
}

func setQueueGauges(name, state string, count, total int) {
	metrics.QueueDepth.WithLabelValues(name, state).Set(float64(count))

	share := 0.0
	if total > 0 {
		share = float64(count) / float64(total) * 100
	}
	metrics.QueueShare.WithLabelValues(name, state).Set(share)
}

// Close releases the inspector's connection.
func (s *StatsSampler) Close() error {
	return s.inspector.Close()
}

// LogQueueSnapshot logs one-line queue stats, useful at worker startup.
func (s *StatsSampler) LogQueueSnapshot() {
	for _, name := range s.queues {
		info, err := s.inspector.GetQueueInfo(name)
		if err != nil {
			continue
		}
		logger.Log.Info("queue snapshot",
			zap.String("queue", name),
			zap.Int("pending", info.Pending),
			zap.Int("active", info.Active),
			zap.Int("retry", info.Retry),
		)
	}
}
