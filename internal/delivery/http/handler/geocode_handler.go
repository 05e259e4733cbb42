package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/accessibility-reports/internal/pkg/errors"
	"github.com/accessibility-reports/internal/pkg/utils"
	"github.com/accessibility-reports/internal/usecase"
	"github.com/accessibility-reports/internal/usecase/dto"
)

// GeocodeHandler - обработчик геокодирования
type GeocodeHandler struct {
	geocodeUC *usecase.GeocodeUseCase
	logger    *zap.Logger
}

// NewGeocodeHandler - создание нового GeocodeHandler
func NewGeocodeHandler(geocodeUC *usecase.GeocodeUseCase, logger *zap.Logger) *GeocodeHandler {
	return &GeocodeHandler{
		geocodeUC: geocodeUC,
		logger:    logger,
	}
}

// Search godoc
// @Summary Поиск места
// @Description Прямое геокодирование строки (адрес, название места)
// @Tags Geocoding
// @Produce json
// @Param q query string true "Поисковый запрос (минимум 2 символа)"
// @Param limit query int false "Максимальное количество результатов" default(5)
// @Success 200 {object} utils.SuccessResponse{data=dto.GeocodeSearchResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /api/v1/geocode/search [get]
func (h *GeocodeHandler) Search(c *fiber.Ctx) error {
	var req dto.GeocodeSearchRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{"query": err.Error()}))
	}

	result, err := h.geocodeUC.Search(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{Total: result.Total})
}

// Reverse godoc
// @Summary Обратное геокодирование
// @Description Адрес точки по координатам
// @Tags Geocoding
// @Produce json
// @Param lat query number true "Широта"
// @Param lon query number true "Долгота"
// @Success 200 {object} utils.SuccessResponse{data=domain.Address}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /api/v1/geocode/reverse [get]
func (h *GeocodeHandler) Reverse(c *fiber.Ctx) error {
	if c.Query("lat") == "" || c.Query("lon") == "" {
		return utils.SendError(c, errors.ErrInvalidCoordinates.WithDetails(map[string]interface{}{
			"query": "lat and lon are required",
		}))
	}

	var req dto.ReverseGeocodeRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidCoordinates)
	}

	result, err := h.geocodeUC.Reverse(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, nil)
}
