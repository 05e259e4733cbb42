package handler

import (
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/accessibility-reports/internal/pkg/errors"
	"github.com/accessibility-reports/internal/pkg/utils"
	"github.com/accessibility-reports/internal/usecase"
	"github.com/accessibility-reports/internal/usecase/dto"
)

// imageFields - имена полей формы с фотографиями
var imageFields = []string{"image", "images"}

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
}

// ReportHandler - обработчик отчётов о препятствиях
type ReportHandler struct {
	reportUC     *usecase.ReportUseCase
	logger       *zap.Logger
	maxImageSize int64
}

// NewReportHandler - создание нового ReportHandler
func NewReportHandler(reportUC *usecase.ReportUseCase, logger *zap.Logger, maxImageSize int64) *ReportHandler {
	return &ReportHandler{
		reportUC:     reportUC,
		logger:       logger,
		maxImageSize: maxImageSize,
	}
}

// Submit godoc
// @Summary Создание отчёта о препятствии
// @Description Принимает multipart-форму с фотографиями. Если координаты не переданы, используется GPS из EXIF фотографии.
// @Tags Reports
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Название"
// @Param category formData string true "Категория" Enums(blocked_sidewalk, blocked_bike_lane, blocked_crosswalk, blocked_entrance)
// @Param description formData string false "Описание"
// @Param latitude formData number false "Широта"
// @Param longitude formData number false "Долгота"
// @Param image formData file true "Фотография (можно несколько)"
// @Success 201 {object} utils.SuccessResponse{data=dto.SubmitReportResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 413 {object} utils.ErrorResponse
// @Failure 415 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/reports [post]
func (h *ReportHandler) Submit(c *fiber.Ctx) error {
	result, err := h.submit(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendCreated(c, result)
}

// SubmitLegacy godoc
// @Summary Создание отчёта (старый путь)
// @Description То же, что POST /api/v1/reports, но без обёртки data: {"message": ..., "report": {...}}
// @Tags Legacy
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} dto.SubmitReportResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /submit [post]
func (h *ReportHandler) SubmitLegacy(c *fiber.Ctx) error {
	result, err := h.submit(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	return c.JSON(result)
}

// List godoc
// @Summary Список отчётов
// @Description Отчёты, новые первыми. Страница кешируется.
// @Tags Reports
// @Produce json
// @Param skip query int false "Смещение" default(0)
// @Param limit query int false "Размер страницы (до 1000)" default(100)
// @Param category query string false "Фильтр по категории"
// @Success 200 {object} utils.SuccessResponse{data=[]dto.ReportResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/reports [get]
func (h *ReportHandler) List(c *fiber.Ctx) error {
	req, err := parseListRequest(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	result, cached, err := h.reportUC.List(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result.Reports, &utils.Meta{
		Total:  result.Total,
		Skip:   result.Skip,
		Limit:  result.Limit,
		Cached: cached,
	})
}

// ListLegacy godoc
// @Summary Список отчётов (старый путь)
// @Description Ответ в формате {"reports": [...]}
// @Tags Legacy
// @Produce json
// @Success 200 {object} map[string][]dto.ReportResponse
// @Router /reports [get]
func (h *ReportHandler) ListLegacy(c *fiber.Ctx) error {
	req, err := parseListRequest(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	result, _, err := h.reportUC.List(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return c.JSON(fiber.Map{"reports": result.Reports})
}

// Get godoc
// @Summary Отчёт по ID
// @Tags Reports
// @Produce json
// @Param id path string true "UUID отчёта"
// @Success 200 {object} utils.SuccessResponse{data=dto.ReportResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/reports/{id} [get]
func (h *ReportHandler) Get(c *fiber.Ctx) error {
	result, err := h.reportUC.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, result, nil)
}

// Categories godoc
// @Summary Категории препятствий
// @Description Категории с подписью и цветом маркера на карте
// @Tags Reports
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]domain.CategoryInfo}
// @Router /api/v1/reports/categories [get]
func (h *ReportHandler) Categories(c *fiber.Ctx) error {
	categories := h.reportUC.Categories()
	return utils.SendSuccess(c, categories, &utils.Meta{Total: len(categories)})
}

// Image godoc
// @Summary Фотография отчёта
// @Description Отдаёт файл или перенаправляет на временную ссылку объектного хранилища
// @Tags Reports
// @Produce image/jpeg,image/png,image/webp,image/heic
// @Param key path string true "Ключ фотографии"
// @Success 200 {file} binary
// @Success 302 "Redirect to presigned URL"
// @Failure 404 {object} utils.ErrorResponse
// @Router /uploads/{key} [get]
func (h *ReportHandler) Image(c *fiber.Ctx) error {
	key := c.Params("*")

	url, rc, err := h.reportUC.OpenImage(c.UserContext(), key)
	if err != nil {
		return utils.SendError(c, err)
	}
	if url != "" {
		return c.Redirect(url, fiber.StatusFound)
	}

	if contentType, ok := imageContentTypes[strings.ToLower(filepath.Ext(key))]; ok {
		c.Set(fiber.HeaderContentType, contentType)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.SendStream(rc)
}

func (h *ReportHandler) submit(c *fiber.Ctx) (*dto.SubmitReportResponse, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"body": "multipart/form-data expected",
		})
	}

	req := dto.SubmitReportRequest{
		Name:        formValue(form, "name"),
		Category:    formValue(form, "category"),
		Description: formValue(form, "description"),
	}

	if req.Latitude, err = parseOptionalFloat(formValue(form, "latitude")); err != nil {
		return nil, errors.ErrInvalidCoordinates.WithDetails(map[string]interface{}{"latitude": "must be a number"})
	}
	if req.Longitude, err = parseOptionalFloat(formValue(form, "longitude")); err != nil {
		return nil, errors.ErrInvalidCoordinates.WithDetails(map[string]interface{}{"longitude": "must be a number"})
	}

	for _, field := range imageFields {
		for _, fh := range form.File[field] {
			img, err := h.readImage(fh)
			if err != nil {
				return nil, err
			}
			req.Images = append(req.Images, img)
		}
	}

	return h.reportUC.Submit(c.UserContext(), req)
}

// readImage читает файл формы, не загружая в память больше лимита
func (h *ReportHandler) readImage(fh *multipart.FileHeader) (dto.ImageUpload, error) {
	if h.maxImageSize > 0 && fh.Size > h.maxImageSize {
		return dto.ImageUpload{}, errors.ErrImageTooLarge.WithDetails(map[string]interface{}{
			"filename": fh.Filename,
			"max_size": h.maxImageSize,
		})
	}

	f, err := fh.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.String("filename", fh.Filename), zap.Error(err))
		return dto.ImageUpload{}, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{"filename": fh.Filename})
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxImageSize > 0 {
		r = io.LimitReader(f, h.maxImageSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		h.logger.Error("Failed to read uploaded file", zap.String("filename", fh.Filename), zap.Error(err))
		return dto.ImageUpload{}, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{"filename": fh.Filename})
	}

	return dto.ImageUpload{Filename: fh.Filename, Data: data}, nil
}

func parseListRequest(c *fiber.Ctx) (dto.ListReportsRequest, error) {
	var req dto.ListReportsRequest
	if err := c.QueryParser(&req); err != nil {
		return req, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{"query": err.Error()})
	}
	return req, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "undefined" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
