package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/accessibility-reports/internal/domain"
	apperrors "github.com/accessibility-reports/internal/pkg/errors"
	"github.com/accessibility-reports/internal/pkg/geo"
	"github.com/accessibility-reports/internal/usecase"
	"github.com/accessibility-reports/internal/usecase/dto"
)

var testNavigationConfig = usecase.NavigationConfig{
	Profile:     "foot-walking",
	AvoidRadius: 30,
	MaxReports:  500,
}

type navigationMocks struct {
	repo     *MockReportRepository
	routing  *MockRoutingRepository
	geocoder *MockGeocodingRepository
}

func newNavigationUseCase() (*usecase.NavigationUseCase, navigationMocks) {
	m := navigationMocks{
		repo:     &MockReportRepository{},
		routing:  &MockRoutingRepository{},
		geocoder: &MockGeocodingRepository{},
	}
	uc := usecase.NewNavigationUseCase(m.repo, m.routing, m.geocoder, zap.NewNop(), testNavigationConfig)
	return uc, m
}

var reportsFilter = domain.ReportFilter{Limit: 500}

func sampleReports() []*domain.Report {
	return []*domain.Report{
		{ID: uuid.New(), Latitude: 44.4432, Longitude: 26.0931},
		{ID: uuid.New(), Latitude: 44.4450, Longitude: 26.0950},
	}
}

func manyReports(n int) []*domain.Report {
	reports := make([]*domain.Report, n)
	for i := range reports {
		reports[i] = &domain.Report{ID: uuid.New(), Latitude: 44.40 + float64(i%100)*0.001, Longitude: 26.05 + float64(i/100)*0.001}
	}
	return reports
}

func sampleRoute() *domain.Route {
	distance, duration := 1200.5, 860.0
	return &domain.Route{
		Points:          [][2]float64{{44.44, 26.09}, {44.45, 26.10}},
		DistanceMeters:  &distance,
		DurationSeconds: &duration,
	}
}

func TestNavigationUseCase_BuildRoute(t *testing.T) {
	ctx := context.Background()
	origin := &domain.Point{Lat: 44.4400, Lon: 26.0900}
	destination := &domain.Point{Lat: 44.4500, Lon: 26.1000}

	t.Run("route with avoid zones around every report", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		m.repo.On("List", mock.Anything, reportsFilter).Return(sampleReports(), nil)
		m.routing.On("Directions", ctx, mock.MatchedBy(func(req domain.RouteRequest) bool {
			return req.Origin == *origin &&
				req.Destination == *destination &&
				req.Profile == "foot-walking" &&
				len(req.AvoidPolygons) == 2 &&
				len(req.AvoidPolygons[0][0]) == geo.DefaultCirclePoints+1
		})).Return(sampleRoute(), nil)

		resp, err := uc.BuildRoute(ctx, dto.RouteRequest{Origin: origin, Destination: destination})

		require.NoError(t, err)
		assert.Equal(t, 2, resp.AvoidedZones)
		assert.Equal(t, 30.0, resp.AvoidRadius)
		assert.Len(t, resp.Route, 2)
		require.NotNil(t, resp.Distance)
		assert.Equal(t, 1200.5, *resp.Distance)
		m.routing.AssertExpectations(t)
		m.geocoder.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no reports sends no avoid polygons", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		m.repo.On("List", mock.Anything, reportsFilter).Return([]*domain.Report{}, nil)
		m.routing.On("Directions", ctx, mock.MatchedBy(func(req domain.RouteRequest) bool {
			return req.AvoidPolygons == nil
		})).Return(sampleRoute(), nil)

		resp, err := uc.BuildRoute(ctx, dto.RouteRequest{Origin: origin, Destination: destination})

		require.NoError(t, err)
		assert.Zero(t, resp.AvoidedZones)
	})

	t.Run("destination query is geocoded", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		m.repo.On("List", mock.Anything, reportsFilter).Return([]*domain.Report{}, nil)
		m.geocoder.On("Search", mock.Anything, "Piata Victoriei", 1).Return([]domain.GeocodeCandidate{
			{Lat: 44.4522, Lon: 26.0857, DisplayName: "Piața Victoriei, București"},
		}, nil)
		m.routing.On("Directions", ctx, mock.MatchedBy(func(req domain.RouteRequest) bool {
			return req.Destination == domain.Point{Lat: 44.4522, Lon: 26.0857}
		})).Return(sampleRoute(), nil)

		resp, err := uc.BuildRoute(ctx, dto.RouteRequest{Origin: origin, DestinationQuery: " Piata Victoriei "})

		require.NoError(t, err)
		assert.Equal(t, "Piața Victoriei, București", resp.DestinationName)
		assert.Equal(t, 44.4522, resp.Destination.Lat)
	})

	t.Run("destination query without candidates", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		m.repo.On("List", mock.Anything, reportsFilter).Return([]*domain.Report{}, nil)
		m.geocoder.On("Search", mock.Anything, "nowhere at all", 1).Return([]domain.GeocodeCandidate{}, nil)

		_, err := uc.BuildRoute(ctx, dto.RouteRequest{Origin: origin, DestinationQuery: "nowhere at all"})

		assert.ErrorIs(t, err, apperrors.ErrLocationNotFound)
		m.routing.AssertNotCalled(t, "Directions", mock.Anything, mock.Anything)
	})

	t.Run("malformed reports are skipped", func(t *testing.T) {
		uc, m := newNavigationUseCase()
		reports := append(sampleReports(), nil, &domain.Report{ID: uuid.New(), Latitude: 120, Longitude: 0})

		m.repo.On("List", mock.Anything, reportsFilter).Return(reports, nil)
		m.routing.On("Directions", ctx, mock.MatchedBy(func(req domain.RouteRequest) bool {
			return len(req.AvoidPolygons) == 2
		})).Return(sampleRoute(), nil)

		resp, err := uc.BuildRoute(ctx, dto.RouteRequest{Origin: origin, Destination: destination})

		require.NoError(t, err)
		assert.Equal(t, 2, resp.AvoidedZones)
		require.Len(t, resp.SkippedReports, 2)
		assert.Equal(t, 2, resp.SkippedReports[0].Index)
		assert.Equal(t, 3, resp.SkippedReports[1].Index)
	})

	t.Run("invalid radius never reaches the provider", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		m.repo.On("List", mock.Anything, reportsFilter).Return(sampleReports(), nil)

		_, err := uc.BuildRoute(ctx, dto.RouteRequest{Origin: origin, Destination: destination, AvoidRadius: ptrFloat64(-5)})

		assert.ErrorIs(t, err, geo.ErrInvalidArgument)
		m.routing.AssertNotCalled(t, "Directions", mock.Anything, mock.Anything)
	})

	t.Run("request validation", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		_, err := uc.BuildRoute(ctx, dto.RouteRequest{Origin: origin})
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

		_, err = uc.BuildRoute(ctx, dto.RouteRequest{Origin: &domain.Point{Lat: 10, Lon: 200}, Destination: destination})
		assert.Error(t, err)

		m.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("provider error keeps diagnostic", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		m.repo.On("List", mock.Anything, reportsFilter).Return(sampleReports(), nil)
		m.routing.On("Directions", ctx, mock.Anything).Return(nil, &domain.ProviderError{
			StatusCode: 400,
			Message:    "Polygon is invalid",
		})

		_, err := uc.BuildRoute(ctx, dto.RouteRequest{Origin: origin, Destination: destination})

		require.ErrorIs(t, err, apperrors.ErrRoutingProvider)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, 502, appErr.StatusCode)
		assert.Equal(t, 400, appErr.Details["provider_status"])
		assert.Equal(t, "Polygon is invalid", appErr.Details["provider_message"])
	})

	t.Run("empty route", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		m.repo.On("List", mock.Anything, reportsFilter).Return([]*domain.Report{}, nil)
		m.routing.On("Directions", ctx, mock.Anything).Return(nil, domain.ErrRouteNotFound)

		_, err := uc.BuildRoute(ctx, dto.RouteRequest{Origin: origin, Destination: destination})

		assert.ErrorIs(t, err, apperrors.ErrRouteNotFound)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		m.repo.On("List", mock.Anything, reportsFilter).Return([]*domain.Report{}, nil)
		m.routing.On("Directions", ctx, mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

		_, err := uc.BuildRoute(ctx, dto.RouteRequest{Origin: origin, Destination: destination})

		assert.ErrorIs(t, err, apperrors.ErrRoutingProvider)
	})

	t.Run("store error", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		m.repo.On("List", mock.Anything, reportsFilter).Return(nil, errors.New("boom"))

		_, err := uc.BuildRoute(ctx, dto.RouteRequest{Origin: origin, Destination: destination})

		assert.ErrorIs(t, err, apperrors.ErrDatabaseError)
	})
}

func TestNavigationUseCase_AvoidZones(t *testing.T) {
	ctx := context.Background()

	t.Run("geojson multipolygon", func(t *testing.T) {
		uc, m := newNavigationUseCase()
		m.repo.On("List", ctx, reportsFilter).Return(sampleReports(), nil)

		resp, err := uc.AvoidZones(ctx, ptrFloat64(50))

		require.NoError(t, err)
		assert.Equal(t, 2, resp.Polygons)
		assert.Equal(t, 50.0, resp.Radius)

		raw, err := json.Marshal(resp)
		require.NoError(t, err)
		var decoded struct {
			AvoidPolygons struct {
				Type string `json:"type"`
			} `json:"avoid_polygons"`
		}
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, "MultiPolygon", decoded.AvoidPolygons.Type)
	})

	t.Run("null when there are no reports", func(t *testing.T) {
		uc, m := newNavigationUseCase()
		m.repo.On("List", ctx, reportsFilter).Return([]*domain.Report{}, nil)

		resp, err := uc.AvoidZones(ctx, nil)

		require.NoError(t, err)
		raw, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"avoid_polygons":null`)
	})

	t.Run("pages past the store limit and warns when capped", func(t *testing.T) {
		m := navigationMocks{
			repo:     &MockReportRepository{},
			routing:  &MockRoutingRepository{},
			geocoder: &MockGeocodingRepository{},
		}
		core, logs := observer.New(zap.WarnLevel)
		cfg := testNavigationConfig
		cfg.MaxReports = 1500
		uc := usecase.NewNavigationUseCase(m.repo, m.routing, m.geocoder, zap.New(core), cfg)

		m.repo.On("List", ctx, domain.ReportFilter{Skip: 0, Limit: 1000}).Return(manyReports(1000), nil).Once()
		m.repo.On("List", ctx, domain.ReportFilter{Skip: 1000, Limit: 500}).Return(manyReports(500), nil).Once()
		m.repo.On("Count", ctx, domain.ReportFilter{}).Return(2000, nil).Once()

		resp, err := uc.AvoidZones(ctx, nil)

		require.NoError(t, err)
		assert.Equal(t, 1500, resp.Polygons)
		m.repo.AssertExpectations(t)

		capped := logs.FilterMessage("Avoid zone report limit reached, older reports are not avoided").All()
		require.Len(t, capped, 1)
		assert.Equal(t, int64(2000), capped[0].ContextMap()["total"])
	})

	t.Run("short page stops paging", func(t *testing.T) {
		uc, m := newNavigationUseCase()
		m.repo.On("List", ctx, reportsFilter).Return(manyReports(499), nil).Once()

		resp, err := uc.AvoidZones(ctx, nil)

		require.NoError(t, err)
		assert.Equal(t, 499, resp.Polygons)
		m.repo.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
	})

	t.Run("radius above the api limit", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		_, err := uc.AvoidZones(ctx, ptrFloat64(geo.MaxAvoidRadius+1))

		assert.ErrorIs(t, err, geo.ErrInvalidArgument)
		m.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})
}

func TestNavigationUseCase_Proxy(t *testing.T) {
	ctx := context.Background()

	t.Run("profile and format are moved out of the body", func(t *testing.T) {
		uc, m := newNavigationUseCase()
		body := []byte(`{"coordinates":[[26.09,44.44],[26.1,44.45]],"profile":"wheelchair","format":"geojson"}`)

		m.routing.On("Proxy", ctx, "wheelchair", mock.MatchedBy(func(forward []byte) bool {
			var payload map[string]interface{}
			if err := json.Unmarshal(forward, &payload); err != nil {
				return false
			}
			_, hasProfile := payload["profile"]
			_, hasFormat := payload["format"]
			return !hasProfile && !hasFormat && payload["coordinates"] != nil
		})).Return(200, []byte(`{"type":"FeatureCollection"}`), nil)

		status, resp, err := uc.Proxy(ctx, body)

		require.NoError(t, err)
		assert.Equal(t, 200, status)
		assert.JSONEq(t, `{"type":"FeatureCollection"}`, string(resp))
	})

	t.Run("default profile and provider status passthrough", func(t *testing.T) {
		uc, m := newNavigationUseCase()

		m.routing.On("Proxy", ctx, "foot-walking", mock.Anything).Return(403, []byte(`{"error":"Access to this API has been disallowed"}`), nil)

		status, _, err := uc.Proxy(ctx, []byte(`{"coordinates":[]}`))

		require.NoError(t, err)
		assert.Equal(t, 403, status)
	})

	t.Run("invalid avoid polygons are rejected", func(t *testing.T) {
		uc, m := newNavigationUseCase()
		body := []byte(`{"coordinates":[],"options":{"avoid_polygons":{"type":"Polygon","coordinates":[]}}}`)

		_, _, err := uc.Proxy(ctx, body)

		assert.ErrorIs(t, err, geo.ErrInvalidArgument)
		m.routing.AssertNotCalled(t, "Proxy", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown profile is rejected before the provider", func(t *testing.T) {
		for _, profile := range []string{"../../x", "foot-walking/../../admin", "", "bus"} {
			uc, m := newNavigationUseCase()
			body, err := json.Marshal(map[string]interface{}{"coordinates": []interface{}{}, "profile": profile})
			require.NoError(t, err)

			_, _, err = uc.Proxy(ctx, body)

			assert.ErrorIs(t, err, apperrors.ErrInvalidRequest, profile)
			m.routing.AssertNotCalled(t, "Proxy", mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("not json", func(t *testing.T) {
		uc, _ := newNavigationUseCase()

		_, _, err := uc.Proxy(ctx, []byte("coordinates=1"))

		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		uc, m := newNavigationUseCase()
		m.routing.On("Proxy", ctx, mock.Anything, mock.Anything).Return(0, nil, errors.New("timeout"))

		_, _, err := uc.Proxy(ctx, []byte(`{}`))

		assert.ErrorIs(t, err, apperrors.ErrRoutingProvider)
	})
}
