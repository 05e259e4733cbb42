package usecase

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/domain/repository"
	"github.com/accessibility-reports/internal/pkg/errors"
	"github.com/accessibility-reports/internal/pkg/geo"
	"github.com/accessibility-reports/internal/pkg/metrics"
	"github.com/accessibility-reports/internal/pkg/validator"
	"github.com/accessibility-reports/internal/usecase/dto"
)

const defaultGeocodeLimit = 5

// GeocodeUseCase - use case для поиска мест и обратного геокодирования
type GeocodeUseCase struct {
	geocoder  repository.GeocodingRepository
	cacheRepo repository.CacheRepository
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewGeocodeUseCase - создание нового GeocodeUseCase
func NewGeocodeUseCase(
	geocoder repository.GeocodingRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *GeocodeUseCase {
	return &GeocodeUseCase{
		geocoder:  geocoder,
		cacheRepo: cacheRepo,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// Search - поиск мест по строке
func (uc *GeocodeUseCase) Search(ctx context.Context, req dto.GeocodeSearchRequest) (*dto.GeocodeSearchResponse, error) {
	req.Query = strings.TrimSpace(req.Query)
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Limit == 0 {
		req.Limit = defaultGeocodeLimit
	}

	cacheKey := fmt.Sprintf("geocode:search:%d:%s", req.Limit, strings.ToLower(req.Query))
	var cached dto.GeocodeSearchResponse
	if uc.readCache(ctx, cacheKey, "geocode_search", &cached) {
		return &cached, nil
	}

	candidates, err := uc.geocoder.Search(ctx, req.Query, req.Limit)
	if err != nil && !stderrors.Is(err, domain.ErrLocationNotFound) {
		uc.logger.Error("Failed to search places", zap.String("query", req.Query), zap.Error(err))
		return nil, errors.ErrGeocoding.Wrap(err)
	}
	if candidates == nil {
		candidates = []domain.GeocodeCandidate{}
	}

	resp := &dto.GeocodeSearchResponse{
		Results: candidates,
		Total:   len(candidates),
	}
	uc.writeCache(ctx, cacheKey, resp)

	return resp, nil
}

// Reverse - адрес по координатам
func (uc *GeocodeUseCase) Reverse(ctx context.Context, req dto.ReverseGeocodeRequest) (*domain.Address, error) {
	if !geo.ValidateCoordinates(req.Lat, req.Lon) {
		return nil, errors.ErrInvalidCoordinates
	}

	// ~10 см: соседние запросы с одной точки попадают в один ключ
	cacheKey := fmt.Sprintf("geocode:reverse:%.6f:%.6f", req.Lat, req.Lon)
	var cached domain.Address
	if uc.readCache(ctx, cacheKey, "geocode_reverse", &cached) {
		return &cached, nil
	}

	address, err := uc.geocoder.Reverse(ctx, req.Lat, req.Lon)
	if err != nil {
		if stderrors.Is(err, domain.ErrLocationNotFound) {
			return nil, errors.ErrLocationNotFound
		}
		uc.logger.Error("Failed to reverse geocode",
			zap.Float64("lat", req.Lat),
			zap.Float64("lon", req.Lon),
			zap.Error(err),
		)
		return nil, errors.ErrGeocoding.Wrap(err)
	}

	uc.writeCache(ctx, cacheKey, address)

	return address, nil
}

func (uc *GeocodeUseCase) readCache(ctx context.Context, key, operation string, dst interface{}) bool {
	if uc.cacheRepo == nil {
		return false
	}
	data, err := uc.cacheRepo.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	metrics.ObserveCache(operation, data != nil)
	if data == nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (uc *GeocodeUseCase) writeCache(ctx context.Context, key string, value interface{}) {
	if uc.cacheRepo == nil || uc.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := uc.cacheRepo.Set(ctx, key, data, uc.cacheTTL); err != nil {
		uc.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
