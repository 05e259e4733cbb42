package usecase

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/domain/repository"
	"go.uber.org/zap"
)

// EnrichmentUseCase - use case для обогащения отчётов адресом
type EnrichmentUseCase struct {
	reportRepo repository.ReportRepository
	geocoder   repository.GeocodingRepository
	cacheRepo  repository.CacheRepository
	logger     *zap.Logger
}

// NewEnrichmentUseCase создает новый EnrichmentUseCase.
// cacheRepo может быть nil, если список отчётов не кешируется.
func NewEnrichmentUseCase(
	reportRepo repository.ReportRepository,
	geocoder repository.GeocodingRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
) *EnrichmentUseCase {
	return &EnrichmentUseCase{
		reportRepo: reportRepo,
		geocoder:   geocoder,
		cacheRepo:  cacheRepo,
		logger:     logger,
	}
}

// EnrichReport определяет адрес отчёта и сохраняет его.
//
// Постоянные ошибки (адрес не найден, отчёт удалён) попадают в поле Error результата,
// ошибка возвращается только для временных сбоев: сообщение нужно обработать повторно.
func (uc *EnrichmentUseCase) EnrichReport(ctx context.Context, event *domain.ReportCreatedEvent) (*domain.ReportEnrichedEvent, error) {
	result := &domain.ReportEnrichedEvent{
		ReportID: event.ReportID,
	}

	address, err := uc.geocoder.Reverse(ctx, event.Latitude, event.Longitude)
	if err != nil {
		if stderrors.Is(err, domain.ErrLocationNotFound) {
			uc.logger.Info("No address for report location",
				zap.String("report_id", event.ReportID.String()),
				zap.Float64("lat", event.Latitude),
				zap.Float64("lon", event.Longitude))
			result.Error = "address not found"
			return result, nil
		}
		return nil, fmt.Errorf("failed to reverse geocode report %s: %w", event.ReportID, err)
	}

	if err := uc.reportRepo.UpdateAddress(ctx, event.ReportID, address.DisplayName); err != nil {
		if stderrors.Is(err, domain.ErrReportNotFound) {
			uc.logger.Warn("Report disappeared before enrichment",
				zap.String("report_id", event.ReportID.String()))
			result.Error = "report not found"
			return result, nil
		}
		return nil, fmt.Errorf("failed to save address for report %s: %w", event.ReportID, err)
	}

	// страницы списка держат старый адрес до истечения TTL
	if uc.cacheRepo != nil {
		if err := uc.cacheRepo.DeleteByPrefix(ctx, ReportsListCachePrefix); err != nil {
			uc.logger.Warn("Failed to invalidate reports cache", zap.Error(err))
		}
	}

	result.Address = address
	return result, nil
}
