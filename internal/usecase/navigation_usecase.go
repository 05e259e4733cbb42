package usecase

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/domain/repository"
	"github.com/accessibility-reports/internal/pkg/errors"
	"github.com/accessibility-reports/internal/pkg/geo"
	"github.com/accessibility-reports/internal/pkg/metrics"
	"github.com/accessibility-reports/internal/pkg/validator"
	"github.com/accessibility-reports/internal/usecase/dto"
)

// NavigationConfig - параметры построения маршрутов
type NavigationConfig struct {
	Profile     string
	AvoidRadius float64
	MaxReports  int
}

// NavigationUseCase - use case для маршрутов в обход препятствий
type NavigationUseCase struct {
	reportRepo  repository.ReportRepository
	routingRepo repository.RoutingRepository
	geocoder    repository.GeocodingRepository
	logger      *zap.Logger
	cfg         NavigationConfig
}

// NewNavigationUseCase - создание нового NavigationUseCase
func NewNavigationUseCase(
	reportRepo repository.ReportRepository,
	routingRepo repository.RoutingRepository,
	geocoder repository.GeocodingRepository,
	logger *zap.Logger,
	cfg NavigationConfig,
) *NavigationUseCase {
	if cfg.AvoidRadius == 0 {
		cfg.AvoidRadius = geo.DefaultAvoidRadius
	}
	if cfg.MaxReports <= 0 {
		cfg.MaxReports = domain.MaxReportsLimit
	}
	return &NavigationUseCase{
		reportRepo:  reportRepo,
		routingRepo: routingRepo,
		geocoder:    geocoder,
		logger:      logger,
		cfg:         cfg,
	}
}

// BuildRoute - пешеходный маршрут от origin до destination в обход зон вокруг отчётов
func (uc *NavigationUseCase) BuildRoute(ctx context.Context, req dto.RouteRequest) (*dto.RouteResponse, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	req.DestinationQuery = strings.TrimSpace(req.DestinationQuery)
	if req.Destination == nil && req.DestinationQuery == "" {
		return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"destination": "either destination or destination_query is required",
		})
	}
	if !geo.ValidateCoordinates(req.Origin.Lat, req.Origin.Lon) {
		return nil, errors.ErrInvalidCoordinates.WithDetails(map[string]interface{}{"field": "origin"})
	}
	if req.Destination != nil && !geo.ValidateCoordinates(req.Destination.Lat, req.Destination.Lon) {
		return nil, errors.ErrInvalidCoordinates.WithDetails(map[string]interface{}{"field": "destination"})
	}

	radius := uc.cfg.AvoidRadius
	if req.AvoidRadius != nil {
		if err := geo.ValidateAvoidRadius(*req.AvoidRadius); err != nil {
			return nil, err
		}
		radius = *req.AvoidRadius
	}

	// отчёты и геокодирование назначения загружаются параллельно
	var (
		reports         []*domain.Report
		destination     domain.Point
		destinationName string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reports, err = uc.loadReports(gctx)
		return err
	})
	if req.Destination != nil {
		destination = *req.Destination
	} else {
		g.Go(func() error {
			point, name, err := uc.geocodeDestination(gctx, req.DestinationQuery)
			if err != nil {
				return err
			}
			destination, destinationName = point, name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zones, skipped, err := uc.buildZones(reports, radius)
	if err != nil {
		return nil, err
	}

	route, err := uc.routingRepo.Directions(ctx, domain.RouteRequest{
		Origin:        *req.Origin,
		Destination:   destination,
		Profile:       uc.cfg.Profile,
		AvoidPolygons: zones,
	})
	if err != nil {
		return nil, uc.routingError(err)
	}
	metrics.RoutingRequests.WithLabelValues("ok").Inc()

	uc.logger.Info("Route built",
		zap.Int("points", len(route.Points)),
		zap.Int("avoided_zones", len(zones)),
		zap.Int("skipped_reports", len(skipped)),
	)

	return &dto.RouteResponse{
		Route:           route.Points,
		Distance:        route.DistanceMeters,
		Duration:        route.DurationSeconds,
		Origin:          *req.Origin,
		Destination:     destination,
		DestinationName: destinationName,
		AvoidRadius:     radius,
		AvoidedZones:    len(zones),
		SkippedReports:  skipped,
	}, nil
}

// AvoidZones - текущие зоны объезда для слоя карты
func (uc *NavigationUseCase) AvoidZones(ctx context.Context, radius *float64) (*dto.AvoidZonesResponse, error) {
	r := uc.cfg.AvoidRadius
	if radius != nil {
		if err := geo.ValidateAvoidRadius(*radius); err != nil {
			return nil, err
		}
		r = *radius
	}

	reports, err := uc.loadReports(ctx)
	if err != nil {
		return nil, err
	}

	zones, skipped, err := uc.buildZones(reports, r)
	if err != nil {
		return nil, err
	}

	resp := &dto.AvoidZonesResponse{
		Radius:   r,
		Polygons: len(zones),
		Skipped:  skipped,
	}
	if zones != nil {
		resp.AvoidPolygons = geojson.NewGeometry(zones)
	}
	return resp, nil
}

// Proxy - прозрачная пересылка тела запроса провайдеру маршрутов.
// Поля profile и format из тела определяют адрес запроса и в тело не попадают.
func (uc *NavigationUseCase) Proxy(ctx context.Context, body []byte) (int, []byte, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{"body": "must be a JSON object"})
	}

	profile := uc.cfg.Profile
	if raw, ok := payload["profile"]; ok {
		var p string
		if err := json.Unmarshal(raw, &p); err != nil || !domain.IsRoutingProfile(p) {
			return 0, nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
				"profile": "must be one of " + strings.Join(domain.RoutingProfiles, ", "),
			})
		}
		profile = p
		delete(payload, "profile")
	}
	delete(payload, "format")

	if raw, ok := payload["options"]; ok {
		var options struct {
			AvoidPolygons json.RawMessage `json:"avoid_polygons"`
		}
		if err := json.Unmarshal(raw, &options); err == nil && len(options.AvoidPolygons) > 0 {
			if err := geo.ValidateAvoidZonesJSON(options.AvoidPolygons); err != nil {
				return 0, nil, err
			}
		}
	}

	forward, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, errors.ErrInternalServer.Wrap(err)
	}

	status, resp, err := uc.routingRepo.Proxy(ctx, profile, forward)
	if err != nil {
		metrics.RoutingRequests.WithLabelValues("unreachable").Inc()
		uc.logger.Error("Failed to proxy routing request", zap.Error(err))
		return 0, nil, errors.ErrRoutingProvider.Wrap(err)
	}
	metrics.RoutingRequests.WithLabelValues("proxied").Inc()
	return status, resp, nil
}

// loadReports читает отчёты страницами по MaxReportsLimit, но не больше cfg.MaxReports
func (uc *NavigationUseCase) loadReports(ctx context.Context) ([]*domain.Report, error) {
	var reports []*domain.Report
	for len(reports) < uc.cfg.MaxReports {
		limit := min(domain.MaxReportsLimit, uc.cfg.MaxReports-len(reports))
		page, err := uc.reportRepo.List(ctx, domain.ReportFilter{Skip: len(reports), Limit: limit})
		if err != nil {
			uc.logger.Error("Failed to load reports for avoid zones", zap.Error(err))
			return nil, errors.ErrDatabaseError.Wrap(err)
		}
		reports = append(reports, page...)
		if len(page) < limit {
			return reports, nil
		}
	}

	total, err := uc.reportRepo.Count(ctx, domain.ReportFilter{})
	if err != nil {
		uc.logger.Warn("Failed to count reports after reaching avoid zone limit", zap.Error(err))
		return reports, nil
	}
	if total > len(reports) {
		uc.logger.Warn("Avoid zone report limit reached, older reports are not avoided",
			zap.Int("limit", uc.cfg.MaxReports),
			zap.Int("total", total),
		)
	}
	return reports, nil
}

func (uc *NavigationUseCase) geocodeDestination(ctx context.Context, query string) (domain.Point, string, error) {
	candidates, err := uc.geocoder.Search(ctx, query, 1)
	if err != nil {
		if stderrors.Is(err, domain.ErrLocationNotFound) {
			return domain.Point{}, "", errors.ErrLocationNotFound.WithDetails(map[string]interface{}{"query": query})
		}
		uc.logger.Error("Failed to geocode destination", zap.String("query", query), zap.Error(err))
		return domain.Point{}, "", errors.ErrGeocoding.Wrap(err)
	}
	if len(candidates) == 0 {
		return domain.Point{}, "", errors.ErrLocationNotFound.WithDetails(map[string]interface{}{"query": query})
	}

	first := candidates[0]
	return domain.Point{Lat: first.Lat, Lon: first.Lon}, first.DisplayName, nil
}

// buildZones строит и проверяет MultiPolygon; nil - объезжать нечего
func (uc *NavigationUseCase) buildZones(reports []*domain.Report, radius float64) (orb.MultiPolygon, []*geo.DataQualityError, error) {
	zones, skipped, err := geo.BuildAvoidZones(reports, radius)
	if err != nil {
		return nil, nil, err
	}

	for _, s := range skipped {
		uc.logger.Warn("Skipping report without usable coordinates",
			zap.Int("index", s.Index),
			zap.String("report_id", s.ID),
			zap.Error(s.Err),
		)
	}
	metrics.AvoidZonesSkipped.Add(float64(len(skipped)))

	if zones == nil {
		return nil, skipped, nil
	}
	if err := geo.ValidateAvoidZones(zones); err != nil {
		uc.logger.Error("Generated avoid zones failed validation", zap.Error(err))
		return nil, nil, err
	}
	metrics.AvoidZonesBuilt.Observe(float64(len(zones)))

	return zones, skipped, nil
}

func (uc *NavigationUseCase) routingError(err error) error {
	var providerErr *domain.ProviderError
	switch {
	case stderrors.As(err, &providerErr):
		metrics.RoutingRequests.WithLabelValues("provider_error").Inc()
		uc.logger.Warn("Routing provider rejected request",
			zap.Int("status", providerErr.StatusCode),
			zap.String("message", providerErr.Message),
		)
		return errors.ErrRoutingProvider.Wrap(err).WithDetails(map[string]interface{}{
			"provider_status":  providerErr.StatusCode,
			"provider_message": providerErr.Message,
		})
	case stderrors.Is(err, domain.ErrRouteNotFound):
		metrics.RoutingRequests.WithLabelValues("not_found").Inc()
		return errors.ErrRouteNotFound
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		metrics.RoutingRequests.WithLabelValues("timeout").Inc()
		return errors.ErrRoutingProvider.Wrap(err).WithDetails(map[string]interface{}{
			"provider_message": "routing provider did not respond in time",
		})
	default:
		metrics.RoutingRequests.WithLabelValues("unreachable").Inc()
		uc.logger.Error("Routing request failed", zap.Error(err))
		return errors.ErrRoutingProvider.Wrap(err).WithDetails(map[string]interface{}{
			"provider_message": "routing provider is unreachable",
		})
	}
}
