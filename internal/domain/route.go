package domain

import (
	"errors"
	"fmt"
	"slices"

	"github.com/paulmach/orb"
)

var ErrRouteNotFound = errors.New("route not found")

// RoutingProfiles - профили directions API, которые сервис передаёт провайдеру
var RoutingProfiles = []string{
	"foot-walking",
	"foot-hiking",
	"wheelchair",
	"driving-car",
	"driving-hgv",
	"cycling-regular",
	"cycling-road",
	"cycling-mountain",
	"cycling-electric",
}

// IsRoutingProfile - известен ли профиль провайдеру
func IsRoutingProfile(profile string) bool {
	return slices.Contains(RoutingProfiles, profile)
}

// Point - точка в порядке широта/долгота, как её отдаёт клиент
type Point struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

// RouteRequest - запрос пешеходного маршрута к провайдеру
type RouteRequest struct {
	Origin        Point
	Destination   Point
	Profile       string
	AvoidPolygons orb.MultiPolygon
}

// Route - нормализованный маршрут: точки [lat, lon]
type Route struct {
	Points          [][2]float64 `json:"route"`
	DistanceMeters  *float64     `json:"distance,omitempty"`
	DurationSeconds *float64     `json:"duration,omitempty"`
}

// ProviderError - ошибка провайдера маршрутов с его диагностикой
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("routing provider returned %d: %s", e.StatusCode, e.Message)
}
