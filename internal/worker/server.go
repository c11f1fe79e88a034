package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/queue"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// Server runs two asynq servers against the same Redis backend: a weighted
// priority server for sync and promotion work, and a one-worker server that
// drains the maintenance queue so cleanup runs never overlap.
type Server struct {
	priority    *asynq.Server
	maintenance *asynq.Server
	mux         *asynq.ServeMux
}

// NewServer builds the servers and registers the task handlers.
func NewServer(redisURL string, concurrency int, handler *Handler) (*Server, error) {
	redisOpt, err := queue.ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if concurrency <= 0 {
		concurrency = 10
	}

	errorHandler := asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		logger.Log.Error("task failed",
			zap.String("type", task.Type()),
			zap.Error(err),
		)
	})

	priority := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queue.QueueWeights,
		// Weighted fairness, not strict ordering: low-tier jobs still make
		// progress while critical work dominates.
		StrictPriority: false,
		ErrorHandler:   errorHandler,
	})

	maintenance := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:  1,
		Queues:       map[string]int{queue.MaintenanceQueue: 1},
		ErrorHandler: errorHandler,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeSyncRun, instrument(queue.TypeSyncRun, handler.HandleSyncTask))
	mux.HandleFunc(queue.TypePromoteVideo, instrument(queue.TypePromoteVideo, handler.HandlePromoteVideoTask))
	mux.HandleFunc(queue.TypePromoteBatch, instrument(queue.TypePromoteBatch, handler.HandlePromoteBatchTask))
	mux.HandleFunc(queue.TypeCleanupRun, instrument(queue.TypeCleanupRun, handler.HandleCleanupTask))

	return &Server{
		priority:    priority,
		maintenance: maintenance,
		mux:         mux,
	}, nil
}

// Start starts both servers without blocking.
func (s *Server) Start() error {
	logger.Log.Info("starting task servers")
	if err := s.priority.Start(s.mux); err != nil {
		return fmt.Errorf("failed to start priority server: %w", err)
	}
	if err := s.maintenance.Start(s.mux); err != nil {
		s.priority.Shutdown()
		return fmt.Errorf("failed to start maintenance server: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight tasks and stops both servers.
func (s *Server) Shutdown() {
	logger.Log.Info("shutting down task servers")
	s.priority.Shutdown()
	s.maintenance.Shutdown()
}
