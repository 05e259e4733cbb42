package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/domain/repository"
	"github.com/accessibility-reports/internal/pkg/errors"
	"github.com/accessibility-reports/internal/pkg/geo"
	"github.com/accessibility-reports/internal/pkg/metrics"
	"github.com/accessibility-reports/internal/pkg/photo"
	"github.com/accessibility-reports/internal/pkg/validator"
	"github.com/accessibility-reports/internal/usecase/dto"
)

// ReportsListCachePrefix - префикс ключей кеша страниц списка отчётов
const ReportsListCachePrefix = "reports:list:"

// ReportSubmittedMessage - текст ответа на успешное создание отчёта
const ReportSubmittedMessage = "Report submitted successfully"

// ReportConfig - ограничения загрузки и кеширования отчётов
type ReportConfig struct {
	MaxImages     int
	MaxImageSize  int64
	CacheTTL      time.Duration
	PresignExpiry time.Duration
}

// ReportUseCase - use case для отчётов о препятствиях
type ReportUseCase struct {
	reportRepo   repository.ReportRepository
	imageStorage repository.ImageStorage
	cacheRepo    repository.CacheRepository
	streamRepo   repository.StreamRepository
	logger       *zap.Logger
	cfg          ReportConfig
}

// NewReportUseCase - создание нового ReportUseCase.
// cacheRepo и streamRepo могут быть nil: тогда список не кешируется, а события не публикуются.
func NewReportUseCase(
	reportRepo repository.ReportRepository,
	imageStorage repository.ImageStorage,
	cacheRepo repository.CacheRepository,
	streamRepo repository.StreamRepository,
	logger *zap.Logger,
	cfg ReportConfig,
) *ReportUseCase {
	return &ReportUseCase{
		reportRepo:   reportRepo,
		imageStorage: imageStorage,
		cacheRepo:    cacheRepo,
		streamRepo:   streamRepo,
		logger:       logger,
		cfg:          cfg,
	}
}

// Submit - создание отчёта с фотографиями
func (uc *ReportUseCase) Submit(ctx context.Context, req dto.SubmitReportRequest) (*dto.SubmitReportResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.Category != "" && !domain.Category(req.Category).IsValid() {
		return nil, errors.ErrInvalidCategory.WithDetails(map[string]interface{}{
			"category": req.Category,
			"allowed":  categoryNames(),
		})
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	formats, err := uc.checkImages(req.Images)
	if err != nil {
		return nil, err
	}

	lat, lon, err := uc.resolveCoordinates(req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &domain.Report{
		ID:          uuid.New(),
		Name:        req.Name,
		Category:    domain.Category(req.Category),
		Description: strings.TrimSpace(req.Description),
		Latitude:    lat,
		Longitude:   lon,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	keys, err := uc.storeImages(ctx, report.ID, req.Images, formats)
	if err != nil {
		return nil, err
	}
	report.Images = keys

	if err := uc.reportRepo.Create(ctx, report); err != nil {
		uc.logger.Error("Failed to save report", zap.String("report_id", report.ID.String()), zap.Error(err))
		uc.deleteImages(ctx, keys)
		return nil, errors.ErrDatabaseError.Wrap(err)
	}

	metrics.ReportsSubmitted.WithLabelValues(string(report.Category)).Inc()
	uc.invalidateList(ctx)
	uc.publishCreated(ctx, report)

	uc.logger.Info("Report submitted",
		zap.String("report_id", report.ID.String()),
		zap.String("category", string(report.Category)),
		zap.Float64("lat", report.Latitude),
		zap.Float64("lon", report.Longitude),
		zap.Int("images", len(keys)),
	)

	return &dto.SubmitReportResponse{
		Message: ReportSubmittedMessage,
		Report:  dto.NewReportResponse(report),
	}, nil
}

// List - страница отчётов, новые первыми. Второй результат - ответ взят из кеша.
func (uc *ReportUseCase) List(ctx context.Context, req dto.ListReportsRequest) (*dto.ReportListResponse, bool, error) {
	if err := validator.Validate(req); err != nil {
		return nil, false, err
	}

	filter := domain.ReportFilter{
		Skip:     req.Skip,
		Limit:    req.Limit,
		Category: domain.Category(req.Category),
	}.Normalize()

	cacheKey := fmt.Sprintf("%s%d:%d:%s", ReportsListCachePrefix, filter.Skip, filter.Limit, filter.Category)
	if cached := uc.getCached(ctx, cacheKey, "reports_list"); cached != nil {
		var resp dto.ReportListResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			return &resp, true, nil
		}
		uc.logger.Warn("Failed to decode cached reports list", zap.String("key", cacheKey))
	}

	reports, err := uc.reportRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Error("Failed to list reports", zap.Error(err))
		return nil, false, errors.ErrDatabaseError.Wrap(err)
	}

	total, err := uc.reportRepo.Count(ctx, filter)
	if err != nil {
		uc.logger.Error("Failed to count reports", zap.Error(err))
		return nil, false, errors.ErrDatabaseError.Wrap(err)
	}

	resp := &dto.ReportListResponse{
		Reports: make([]dto.ReportResponse, 0, len(reports)),
		Total:   total,
		Skip:    filter.Skip,
		Limit:   filter.Limit,
	}
	for _, r := range reports {
		resp.Reports = append(resp.Reports, dto.NewReportResponse(r))
	}

	uc.setCached(ctx, cacheKey, resp, uc.cfg.CacheTTL)

	return resp, false, nil
}

// Get - отчёт по идентификатору
func (uc *ReportUseCase) Get(ctx context.Context, rawID string) (*dto.ReportResponse, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{"id": "must be a UUID"})
	}

	report, err := uc.reportRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, domain.ErrReportNotFound) {
			return nil, errors.ErrReportNotFound
		}
		uc.logger.Error("Failed to get report", zap.String("report_id", rawID), zap.Error(err))
		return nil, errors.ErrDatabaseError.Wrap(err)
	}

	resp := dto.NewReportResponse(report)
	return &resp, nil
}

// Categories - категории препятствий для легенды карты
func (uc *ReportUseCase) Categories() []domain.CategoryInfo {
	return domain.CategoryInfos
}

// OpenImage - доступ к фотографии: ссылка для редиректа или поток с содержимым
func (uc *ReportUseCase) OpenImage(ctx context.Context, key string) (string, io.ReadCloser, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{"key": key})
	}

	url, err := uc.imageStorage.PresignedURL(ctx, key, uc.cfg.PresignExpiry)
	if err != nil {
		uc.logger.Error("Failed to presign image", zap.String("key", key), zap.Error(err))
		return "", nil, errors.ErrStorageError.Wrap(err)
	}
	if url != "" {
		return url, nil, nil
	}

	rc, err := uc.imageStorage.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, domain.ErrImageNotFound) {
			return "", nil, errors.ErrImageNotFound
		}
		uc.logger.Error("Failed to open image", zap.String("key", key), zap.Error(err))
		return "", nil, errors.ErrStorageError.Wrap(err)
	}
	return "", rc, nil
}

func (uc *ReportUseCase) checkImages(images []dto.ImageUpload) ([]photo.Format, error) {
	if len(images) == 0 {
		return nil, errors.ErrImageRequired
	}
	if uc.cfg.MaxImages > 0 && len(images) > uc.cfg.MaxImages {
		return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"images":     len(images),
			"max_images": uc.cfg.MaxImages,
		})
	}

	formats := make([]photo.Format, 0, len(images))
	for _, img := range images {
		if uc.cfg.MaxImageSize > 0 && int64(len(img.Data)) > uc.cfg.MaxImageSize {
			return nil, errors.ErrImageTooLarge.WithDetails(map[string]interface{}{
				"filename": img.Filename,
				"max_size": uc.cfg.MaxImageSize,
			})
		}
		format, err := photo.DetectFormat(img.Data)
		if err != nil {
			return nil, errors.ErrUnsupportedImage.WithDetails(map[string]interface{}{
				"filename": img.Filename,
			})
		}
		formats = append(formats, format)
	}
	return formats, nil
}

// resolveCoordinates берёт координаты из формы, а без них - GPS из EXIF фотографий
func (uc *ReportUseCase) resolveCoordinates(req dto.SubmitReportRequest) (float64, float64, error) {
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		if !geo.ValidateCoordinates(*req.Latitude, *req.Longitude) {
			return 0, 0, errors.ErrInvalidCoordinates
		}
		return *req.Latitude, *req.Longitude, nil
	case req.Latitude != nil || req.Longitude != nil:
		return 0, 0, errors.ErrInvalidCoordinates.WithMessage("Both latitude and longitude are required")
	}

	for _, img := range req.Images {
		lat, lon, err := photo.ExtractGPS(img.Data)
		if err != nil {
			uc.logger.Debug("No GPS position in image", zap.String("filename", img.Filename), zap.Error(err))
			continue
		}
		if geo.ValidateCoordinates(lat, lon) {
			return lat, lon, nil
		}
	}

	return 0, 0, errors.ErrInvalidCoordinates.WithMessage("Location is missing: share your position or attach a photo with GPS data")
}

func (uc *ReportUseCase) storeImages(ctx context.Context, id uuid.UUID, images []dto.ImageUpload, formats []photo.Format) ([]string, error) {
	keys := make([]string, 0, len(images))
	for i, img := range images {
		key := fmt.Sprintf("reports/%s/%d%s", id, i, formats[i].Extension)
		err := uc.imageStorage.Put(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), formats[i].ContentType)
		if err != nil {
			uc.logger.Error("Failed to store image", zap.String("key", key), zap.Error(err))
			uc.deleteImages(ctx, keys)
			return nil, errors.ErrStorageError.Wrap(err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (uc *ReportUseCase) deleteImages(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := uc.imageStorage.Delete(ctx, key); err != nil {
			uc.logger.Warn("Failed to delete orphan image", zap.String("key", key), zap.Error(err))
		}
	}
}

func (uc *ReportUseCase) invalidateList(ctx context.Context) {
	if uc.cacheRepo == nil {
		return
	}
	if err := uc.cacheRepo.DeleteByPrefix(ctx, ReportsListCachePrefix); err != nil {
		uc.logger.Warn("Failed to invalidate reports cache", zap.Error(err))
	}
}

func (uc *ReportUseCase) publishCreated(ctx context.Context, report *domain.Report) {
	if uc.streamRepo == nil {
		return
	}
	event := domain.ReportCreatedEvent{
		ReportID:  report.ID,
		Category:  report.Category,
		Latitude:  report.Latitude,
		Longitude: report.Longitude,
		CreatedAt: report.CreatedAt,
	}
	if err := uc.streamRepo.PublishToStream(ctx, domain.StreamReportCreated, event); err != nil {
		uc.logger.Warn("Failed to publish report created event",
			zap.String("report_id", report.ID.String()),
			zap.Error(err),
		)
	}
}

func (uc *ReportUseCase) getCached(ctx context.Context, key, operation string) []byte {
	if uc.cacheRepo == nil {
		return nil
	}
	data, err := uc.cacheRepo.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	metrics.ObserveCache(operation, data != nil)
	return data
}

func (uc *ReportUseCase) setCached(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if uc.cacheRepo == nil || ttl <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		uc.logger.Warn("Failed to encode cache value", zap.String("key", key), zap.Error(err))
		return
	}
	if err := uc.cacheRepo.Set(ctx, key, data, ttl); err != nil {
		uc.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func categoryNames() []string {
	names := make([]string, 0, len(domain.CategoryInfos))
	for _, info := range domain.CategoryInfos {
		names = append(names, string(info.Category))
	}
	return names
}
