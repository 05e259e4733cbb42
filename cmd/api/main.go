package main

// @title Accessibility Reports API
// @version 1.0.0
// @description Сервис отчётов о препятствиях для пешеходов: заблокированные тротуары, велодорожки, переходы и входы.
// @description
// @description Основные возможности:
// @description - Приём отчётов с фотографиями (координаты из формы или из EXIF)
// @description - Список отчётов и категории для карты
// @description - Пешеходные маршруты в обход зон вокруг отчётов (openrouteservice)
// @description - Геокодирование адресов (Nominatim)

// @contact.name API Support
// @contact.email support@accessibility-reports.org

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /
// @schemes http https

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/accessibility-reports/docs"
	"github.com/accessibility-reports/internal/config"
	httpDelivery "github.com/accessibility-reports/internal/delivery/http"
	"github.com/accessibility-reports/internal/delivery/http/handler"
	"github.com/accessibility-reports/internal/domain/repository"
	"github.com/accessibility-reports/internal/infrastructure/nominatim"
	"github.com/accessibility-reports/internal/infrastructure/ors"
	"github.com/accessibility-reports/internal/pkg/logger"
	"github.com/accessibility-reports/internal/pkg/metrics"
	"github.com/accessibility-reports/internal/repository/cache"
	"github.com/accessibility-reports/internal/repository/postgres"
	redisRepo "github.com/accessibility-reports/internal/repository/redis"
	"github.com/accessibility-reports/internal/repository/sqlite"
	"github.com/accessibility-reports/internal/repository/storage"
	"github.com/accessibility-reports/internal/usecase"
)

// reportStore - открытое хранилище отчётов
type reportStore struct {
	repo   repository.ReportRepository
	sqlDB  *sql.DB
	health handler.HealthCheck
	close  func() error
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, "api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Accessibility Reports API")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("report_store", cfg.Store.Driver),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("redis", cfg.RedisEnabled()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 3. Report store
	store, err := openReportStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open report store", zap.Error(err))
	}
	defer func() {
		if err := store.close(); err != nil {
			log.Error("Failed to close report store", zap.Error(err))
		}
	}()
	if err := metrics.RegisterDBStats(store.sqlDB, "reports"); err != nil {
		log.Warn("Failed to register DB stats collector", zap.Error(err))
	}

	checks := map[string]handler.HealthCheck{
		"store": store.health,
	}

	// 4. Redis: кеш и события (необязательно)
	var (
		cacheRepo  repository.CacheRepository
		streamRepo repository.StreamRepository
	)
	if cfg.RedisEnabled() {
		redisClient, err := cache.NewRedis(&cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Redis connection", zap.Error(err))
			}
		}()
		cacheRepo = cache.NewCacheRepository(redisClient)
		streamRepo = redisRepo.NewStreamRepository(redisClient.Client(), log)
		checks["cache"] = redisClient.Health
		log.Info("Redis connected")
	} else {
		log.Warn("REDIS_HOST is not set: caching and report events are disabled")
	}

	// 5. Image storage
	imageStorage, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize image storage", zap.Error(err))
	}

	// 6. External providers
	routingClient := ors.NewClient(&cfg.Routing, log)
	geocoder := nominatim.NewClient(&cfg.Geocoding, log)
	if cfg.Routing.APIKey == "" {
		log.Warn("ORS_API_KEY is not set: routing requests will likely be rejected")
	}

	// 7. Initialize Use Cases
	reportUC := usecase.NewReportUseCase(
		store.repo,
		imageStorage,
		cacheRepo,
		streamRepo,
		log,
		usecase.ReportConfig{
			MaxImages:     cfg.Upload.MaxImages,
			MaxImageSize:  cfg.Upload.MaxImageSize,
			CacheTTL:      cfg.Cache.ReportsCacheTTL,
			PresignExpiry: cfg.Storage.PresignExpiry,
		},
	)

	navigationUC := usecase.NewNavigationUseCase(
		store.repo,
		routingClient,
		geocoder,
		log,
		usecase.NavigationConfig{
			Profile:     cfg.Routing.Profile,
			AvoidRadius: cfg.Routing.AvoidRadius,
			MaxReports:  cfg.Routing.MaxReports,
		},
	)

	geocodeUC := usecase.NewGeocodeUseCase(geocoder, cacheRepo, log, cfg.Cache.GeocodeCacheTTL)

	log.Info("Use cases initialized")

	// 8. Initialize HTTP Handlers
	reportHandler := handler.NewReportHandler(reportUC, log, cfg.Upload.MaxImageSize)
	navigationHandler := handler.NewNavigationHandler(navigationUC, log)
	geocodeHandler := handler.NewGeocodeHandler(geocodeUC, log)
	healthHandler := handler.NewHealthHandler(checks, log)

	// 9. Initialize HTTP Server
	server := httpDelivery.NewServer(
		cfg,
		log,
		reportHandler,
		navigationHandler,
		geocodeHandler,
		healthHandler,
	)

	// 10. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 11. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}

// openReportStore открывает PostgreSQL с миграциями или встроенный SQLite по REPORT_STORE
func openReportStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*reportStore, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Store.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return &reportStore{
			repo:   sqlite.NewReportRepository(db),
			sqlDB:  db.DB.DB,
			health: db.Health,
			close:  db.Close,
		}, nil

	default:
		db, err := postgres.New(&cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		log.Info("PostgreSQL connected, migrations applied")
		return &reportStore{
			repo:   postgres.NewReportRepository(db),
			sqlDB:  db.DB.DB,
			health: db.Health,
			close:  db.Close,
		}, nil
	}
}
