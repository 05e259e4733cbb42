package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HealthCheck - проверка доступности зависимости
type HealthCheck func(ctx context.Context) error

// HealthHandler - liveness и проверка зависимостей
type HealthHandler struct {
	checks    map[string]HealthCheck
	logger    *zap.Logger
	startedAt time.Time
}

// NewHealthHandler - создание нового HealthHandler
func NewHealthHandler(checks map[string]HealthCheck, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Health godoc
// @Summary Состояние сервиса
// @Description Проверяет хранилище отчётов и кеш. 503, если какая-то зависимость недоступна.
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/v1/health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "error: " + err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "healthy", fiber.StatusOK
	if !healthy {
		status, code = "degraded", fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": checks,
		"uptime": time.Since(h.startedAt).String(),
		"time":   time.Now(),
	})
}
