package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/accessibility-reports/internal/pkg/errors"
	"github.com/accessibility-reports/internal/pkg/utils"
	"github.com/accessibility-reports/internal/usecase"
	"github.com/accessibility-reports/internal/usecase/dto"
)

// NavigationHandler - обработчик маршрутов в обход препятствий
type NavigationHandler struct {
	navigationUC *usecase.NavigationUseCase
	logger       *zap.Logger
}

// NewNavigationHandler - создание нового NavigationHandler
func NewNavigationHandler(navigationUC *usecase.NavigationUseCase, logger *zap.Logger) *NavigationHandler {
	return &NavigationHandler{
		navigationUC: navigationUC,
		logger:       logger,
	}
}

// Route godoc
// @Summary Пешеходный маршрут в обход препятствий
// @Description Строит маршрут от origin до destination (координаты или строка для геокодирования). Вокруг каждого отчёта строится зона объезда радиусом avoid_radius метров.
// @Tags Navigation
// @Accept json
// @Produce json
// @Param request body dto.RouteRequest true "Начало, назначение и радиус объезда"
// @Success 200 {object} utils.SuccessResponse{data=dto.RouteResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /api/v1/navigation/route [post]
func (h *NavigationHandler) Route(c *fiber.Ctx) error {
	var req dto.RouteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"body": "invalid JSON body",
		}))
	}

	result, err := h.navigationUC.BuildRoute(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, nil)
}

// AvoidZones godoc
// @Summary Зоны объезда
// @Description Текущие зоны объезда как GeoJSON MultiPolygon (null, если отчётов нет)
// @Tags Navigation
// @Produce json
// @Param radius query number false "Радиус зоны, метры" default(30)
// @Success 200 {object} utils.SuccessResponse{data=dto.AvoidZonesResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/navigation/avoid-zones [get]
func (h *NavigationHandler) AvoidZones(c *fiber.Ctx) error {
	var radius *float64
	if raw := c.Query("radius"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return utils.SendError(c, errors.ErrInvalidArgument.WithDetails(map[string]interface{}{
				"radius": "must be a number",
			}))
		}
		radius = &v
	}

	result, err := h.navigationUC.AvoidZones(c.UserContext(), radius)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{Total: result.Polygons})
}

// ProxyORS godoc
// @Summary Прокси к openrouteservice
// @Description Пересылает тело запроса провайдеру маршрутов с серверным ключом и возвращает ответ как есть
// @Tags Legacy
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /proxy/ors [post]
func (h *NavigationHandler) ProxyORS(c *fiber.Ctx) error {
	status, body, err := h.navigationUC.Proxy(c.UserContext(), c.Body())
	if err != nil {
		return utils.SendError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(status).Send(body)
}
