package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/accessibility-reports/internal/config"
	"github.com/accessibility-reports/internal/delivery/http/handler"
	"github.com/accessibility-reports/internal/delivery/http/middleware"
	"github.com/accessibility-reports/internal/pkg/metrics"
	"github.com/accessibility-reports/internal/pkg/utils"
)

// submitRateLimit - сколько отчётов можно отправить с одного IP в минуту
const submitRateLimit = 20

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	// Handlers
	reportHandler     *handler.ReportHandler
	navigationHandler *handler.NavigationHandler
	geocodeHandler    *handler.GeocodeHandler
	healthHandler     *handler.HealthHandler
}

// NewServer - создание нового HTTP сервера
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	reportHandler *handler.ReportHandler,
	navigationHandler *handler.NavigationHandler,
	geocodeHandler *handler.GeocodeHandler,
	healthHandler *handler.HealthHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Accessibility Reports",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:               app,
		config:            cfg,
		logger:            logger,
		reportHandler:     reportHandler,
		navigationHandler: navigationHandler,
		geocodeHandler:    geocodeHandler,
		healthHandler:     healthHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(requestid.New())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(metrics.Middleware())
	s.app.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	// Swagger documentation route
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	// Prometheus
	s.app.Get("/metrics", metrics.Handler())

	// Фотографии отчётов
	s.app.Get("/uploads/*", s.reportHandler.Image)

	submitLimit := middleware.RateLimit(submitRateLimit, time.Minute)

	// Старые пути веб-клиента: ответы без обёртки data
	s.app.Post("/submit", submitLimit, s.reportHandler.SubmitLegacy)
	s.app.Get("/reports", s.reportHandler.ListLegacy)
	s.app.Post("/proxy/ors", s.navigationHandler.ProxyORS)

	api := s.app.Group("/api/v1")

	// Health check
	api.Get("/health", s.healthHandler.Health)

	// Reports
	api.Post("/reports", submitLimit, s.reportHandler.Submit)
	api.Get("/reports", s.reportHandler.List)
	api.Get("/reports/categories", s.reportHandler.Categories)
	api.Get("/reports/:id", s.reportHandler.Get)

	// Navigation
	api.Post("/navigation/route", s.navigationHandler.Route)
	api.Get("/navigation/avoid-zones", s.navigationHandler.AvoidZones)

	// Geocoding
	api.Get("/geocode/search", s.geocodeHandler.Search)
	api.Get("/geocode/reverse", s.geocodeHandler.Reverse)
}

// App - fiber-приложение (для тестов через app.Test)
func (s *Server) App() *fiber.App {
	return s.app
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - ошибки, не обработанные хендлерами (404 маршрута, лимит тела, паника)
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := utils.ToAppError(err)

		if appErr.StatusCode >= fiber.StatusInternalServerError {
			logger.Error("HTTP Error",
				zap.String("path", c.Path()),
				zap.Int("status", appErr.StatusCode),
				zap.Error(err),
			)
		}

		return utils.SendError(c, appErr)
	}
}
