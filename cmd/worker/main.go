package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/accessibility-reports/internal/config"
	"github.com/accessibility-reports/internal/domain/repository"
	"github.com/accessibility-reports/internal/infrastructure/nominatim"
	"github.com/accessibility-reports/internal/pkg/logger"
	"github.com/accessibility-reports/internal/repository/cache"
	"github.com/accessibility-reports/internal/repository/postgres"
	redisRepo "github.com/accessibility-reports/internal/repository/redis"
	"github.com/accessibility-reports/internal/repository/sqlite"
	"github.com/accessibility-reports/internal/usecase"
	"github.com/accessibility-reports/internal/worker"
	"github.com/accessibility-reports/internal/worker/report"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}
	if !cfg.RedisEnabled() {
		fmt.Println("Worker needs Redis streams. Set REDIS_HOST.")
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, "worker")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Report Enrichment Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("max_retries", cfg.Worker.MaxRetries),
		zap.Duration("stream_read_timeout", cfg.Worker.StreamReadTimeout),
		zap.String("report_store", cfg.Store.Driver))

	// 3. Report store
	reportRepo, closeStore, err := openReportRepository(cfg, log)
	if err != nil {
		log.Fatal("Failed to open report store", zap.Error(err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error("Failed to close report store", zap.Error(err))
		}
	}()

	// 4. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), log)

	// 5. Initialize use cases
	geocoder := nominatim.NewClient(&cfg.Geocoding, log)
	cacheRepo := cache.NewCacheRepository(redisClient)
	enrichmentUC := usecase.NewEnrichmentUseCase(reportRepo, geocoder, cacheRepo, log)

	// 6. Initialize workers
	enrichmentWorker := report.NewEnrichmentWorker(
		streamRepo,
		enrichmentUC,
		report.Config{
			ConsumerGroup: cfg.Worker.ConsumerGroup,
			MaxRetries:    cfg.Worker.MaxRetries,
			BlockTimeout:  cfg.Worker.StreamReadTimeout,
			ClaimMinIdle:  cfg.Worker.ClaimMinIdle,
			ClaimInterval: cfg.Worker.ClaimInterval,
		},
		log,
	)

	workerManager := worker.NewWorkerManager(log, worker.DefaultShutdownTimeout)
	workerManager.Register(enrichmentWorker)

	// 7. Start workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 8. Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	// останавливаем через Stop: текущая пачка дочитывается и подтверждается
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}
	cancel()

	log.Info("Worker shutdown complete")
}

func openReportRepository(cfg *config.Config, log *zap.Logger) (repository.ReportRepository, func() error, error) {
	if cfg.Store.Driver == "sqlite" {
		db, err := sqlite.Open(cfg.Store.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewReportRepository(db), db.Close, nil
	}

	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Health(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("postgres health check failed: %w", err)
	}

	return postgres.NewReportRepository(db), db.Close, nil
}
