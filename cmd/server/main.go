// The server binary runs the whole pipeline in one process: the admin HTTP
// API, the queue workers, the periodic scheduler, the stuck-job watchdog
// and the queue stats sampler. Quota and breaker state are in-process, so
// the API reports exactly what the workers see.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/config"
	"github.com/fieldshow/bandcatalog/internal/db"
	"github.com/fieldshow/bandcatalog/internal/db/repository"
	"github.com/fieldshow/bandcatalog/internal/handler"
	"github.com/fieldshow/bandcatalog/internal/matcher"
	"github.com/fieldshow/bandcatalog/internal/queue"
	"github.com/fieldshow/bandcatalog/internal/service"
	"github.com/fieldshow/bandcatalog/internal/service/breaker"
	"github.com/fieldshow/bandcatalog/internal/service/quota"
	"github.com/fieldshow/bandcatalog/internal/service/youtube"
	"github.com/fieldshow/bandcatalog/internal/worker"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close(pool)
	logger.Log.Info("database connection established")

	bandRepo := repository.NewBandRepository(pool)
	rawRepo := repository.NewRawVideoRepository(pool)
	publishedRepo := repository.NewPublishedVideoRepository(pool)
	jobRepo := repository.NewSyncJobRepository(pool)

	// External API guardrails.
	quotaCounter := quota.NewCounter(cfg.Quota.DailyLimit)
	apiBreaker := breaker.New("youtube", cfg.Breaker.FailureThreshold, cfg.Breaker.Cooldown, youtube.CountsTowardBreaker)

	ytClient, err := youtube.NewClient(cfg.YouTube.APIKey, quotaCounter, apiBreaker, cfg.YouTube.PageSize, cfg.YouTube.CallTimeout)
	if err != nil {
		return fmt.Errorf("youtube client: %w", err)
	}

	// Matching and scoring.
	patterns := matcher.DefaultPatterns
	if cfg.Matcher.PatternsFile != "" {
		patterns, err = matcher.LoadPatterns(cfg.Matcher.PatternsFile)
		if err != nil {
			return fmt.Errorf("patterns: %w", err)
		}
	}
	bandMatcher, err := matcher.New(patterns, bandRepo)
	if err != nil {
		return fmt.Errorf("matcher: %w", err)
	}
	scorer := matcher.NewScorer(cfg.Matcher.TrustedChannels)
	logger.Log.Info("matcher ready", zap.Int("patterns", bandMatcher.PatternCount()))

	// Catalog events are optional; a disabled or unreachable broker never
	// blocks the pipeline.
	var events service.EventPublisher = service.NopPublisher{}
	if cfg.Events.Enabled {
		publisher, err := service.NewMessagePublisher(&cfg.Events)
		if err != nil {
			logger.Log.Warn("event publishing disabled, broker unavailable", zap.Error(err))
		} else {
			events = publisher
			defer publisher.Close()
		}
	}

	queueClient, err := queue.NewClient(cfg.Redis.URL, jobRepo)
	if err != nil {
		return fmt.Errorf("queue client: %w", err)
	}
	defer queueClient.Close()

	ingestor := service.NewIngestor(ytClient, bandRepo, rawRepo, jobRepo, bandMatcher, scorer, queueClient, cfg.Worker.MinSyncInterval)
	promoter := service.NewPromoter(rawRepo, publishedRepo, events, cfg.Promotion.BatchSize, cfg.Promotion.MinQualityScore)
	maintainer := service.NewMaintainer(rawRepo, publishedRepo, events, cfg.Maintenance.LowQualityThreshold, cfg.Maintenance.StaleAfter)

	taskServer, err := worker.NewServer(cfg.Redis.URL, cfg.Worker.Concurrency, worker.NewHandler(ingestor, promoter, maintainer))
	if err != nil {
		return fmt.Errorf("task server: %w", err)
	}
	if err := taskServer.Start(); err != nil {
		return fmt.Errorf("task server: %w", err)
	}
	defer taskServer.Shutdown()

	sampler, err := worker.NewStatsSampler(cfg.Redis.URL, cfg.Worker.StatsSampleInterval)
	if err != nil {
		return fmt.Errorf("stats sampler: %w", err)
	}
	defer sampler.Close()
	sampler.LogQueueSnapshot()
	go sampler.Run(ctx)

	watchdog := service.NewWatchdog(jobRepo, cfg.Worker.StuckJobThreshold)
	go watchdog.Run(ctx)

	scheduler := worker.NewScheduler(queueClient, cfg.Worker.SyncEvery, cfg.Worker.PromotionSweepEvery, cfg.Worker.CleanupEvery)
	go scheduler.Run(ctx)

	// Admin HTTP API.
	gin.SetMode(gin.ReleaseMode)
	adminHandler := handler.NewAdminHandler(queueClient, jobRepo, quotaCounter, apiBreaker)
	healthHandler := handler.NewHealthHandler(pool, events)
	router := handler.NewRouter(adminHandler, healthHandler, cfg.Server.APIKeys)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logger.Log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
		if closeErr := httpServer.Close(); closeErr != nil {
			logger.Log.Error("failed to close server", zap.Error(closeErr))
		}
		return err
	}

	logger.Log.Info("server stopped gracefully")
	return nil
}
