package dto

import (
	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/pkg/geo"
	"github.com/paulmach/orb/geojson"
)

// RouteRequest - запрос пешеходного маршрута с объездом препятствий
type RouteRequest struct {
	Origin           *domain.Point `json:"origin" validate:"required"`
	Destination      *domain.Point `json:"destination,omitempty"`
	DestinationQuery string        `json:"destination_query,omitempty" validate:"omitempty,max=256"`
	AvoidRadius      *float64      `json:"avoid_radius,omitempty"`
}

// RouteResponse - нормализованный маршрут: точки в порядке [lat, lon]
type RouteResponse struct {
	Route           [][2]float64            `json:"route"`
	Distance        *float64                `json:"distance,omitempty"`
	Duration        *float64                `json:"duration,omitempty"`
	Origin          domain.Point            `json:"origin"`
	Destination     domain.Point            `json:"destination"`
	DestinationName string                  `json:"destination_name,omitempty"`
	AvoidRadius     float64                 `json:"avoid_radius"`
	AvoidedZones    int                     `json:"avoided_zones"`
	SkippedReports  []*geo.DataQualityError `json:"skipped_reports,omitempty"`
}

// AvoidZonesResponse - текущие зоны объезда для отображения на карте.
// AvoidPolygons = null, если отчётов с координатами нет.
type AvoidZonesResponse struct {
	AvoidPolygons *geojson.Geometry       `json:"avoid_polygons"`
	Radius        float64                 `json:"radius"`
	Polygons      int                     `json:"polygons"`
	Skipped       []*geo.DataQualityError `json:"skipped,omitempty"`
}
