package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	// DefaultCirclePoints - число сегментов окружности по умолчанию
	DefaultCirclePoints = 16

	// MinCirclePoints - минимальное число сегментов (треугольник)
	MinCirclePoints = 3

	// DefaultAvoidRadius - радиус зоны объезда вокруг отчёта, метры
	DefaultAvoidRadius = 30.0

	// MaxAvoidRadius - верхняя граница радиуса зоны объезда для запросов API, метры
	MaxAvoidRadius = 5000.0
)

// MaxRadiusMeters - половина большого круга: дальше прямая задача уходит за антипод
const MaxRadiusMeters = math.Pi * EarthRadiusMeters

// CircleToPolygon аппроксимирует окружность радиуса radius (метры) вокруг точки
// (lat, lon) замкнутым кольцом из numPoints+1 вершин в порядке GeoJSON [lon, lat].
//
// Вершины строятся прямой геодезической задачей на сфере для пеленгов
// 0, 360/numPoints, ..., 360 градусов. Последняя вершина совпадает с первой.
func CircleToPolygon(lat, lon, radius float64, numPoints int) (orb.Ring, error) {
	if !ValidateCoordinates(lat, lon) {
		return nil, fmt.Errorf("%w: center (%v, %v) is not a valid coordinate", ErrInvalidArgument, lat, lon)
	}
	if err := validateRadius(radius); err != nil {
		return nil, err
	}
	if numPoints < MinCirclePoints {
		return nil, fmt.Errorf("%w: numPoints must be at least %d, got %d", ErrInvalidArgument, MinCirclePoints, numPoints)
	}

	sinLat1, cosLat1 := math.Sincos(toRadians(lat))
	lon1 := toRadians(lon)
	sinD, cosD := math.Sincos(radius / EarthRadiusMeters)

	ring := make(orb.Ring, numPoints+1)
	for i := 0; i < numPoints; i++ {
		bearing := toRadians(float64(i) * 360.0 / float64(numPoints))
		sinB, cosB := math.Sincos(bearing)

		lat2 := math.Asin(sinLat1*cosD + cosLat1*sinD*cosB)
		lon2 := lon1 + math.Atan2(sinB*sinD*cosLat1, cosD-sinLat1*math.Sin(lat2))

		ring[i] = orb.Point{normalizeLongitude(toDegrees(lon2)), toDegrees(lat2)}
	}
	// пеленг 360° совпадает с 0°: копируем, чтобы замыкание было точным
	ring[numPoints] = ring[0]

	return ring, nil
}

// BuildAvoidZones строит MultiPolygon зон объезда: по одному кругу радиуса radius
// на каждую запись, без объединения пересекающихся кругов.
//
// Возвращает nil, если строить нечего: в этом случае параметр avoid_polygons
// в запрос маршрутизации не добавляется. Записи с битыми координатами
// пропускаются и возвращаются списком DataQualityError.
func BuildAvoidZones[L Location](locations []L, radius float64) (orb.MultiPolygon, []*DataQualityError, error) {
	if err := validateRadius(radius); err != nil {
		return nil, nil, err
	}
	if len(locations) == 0 {
		return nil, nil, nil
	}

	var (
		zones   orb.MultiPolygon
		skipped []*DataQualityError
	)
	for i, loc := range locations {
		lat, lon, err := loc.LatLon()
		if err != nil {
			skipped = append(skipped, &DataQualityError{Index: i, ID: loc.LocationID(), Err: err})
			continue
		}

		ring, err := CircleToPolygon(lat, lon, radius, DefaultCirclePoints)
		if err != nil {
			skipped = append(skipped, &DataQualityError{Index: i, ID: loc.LocationID(), Err: err})
			continue
		}
		zones = append(zones, orb.Polygon{ring})
	}

	if len(zones) == 0 {
		return nil, skipped, nil
	}
	return zones, skipped, nil
}

// ValidateAvoidRadius проверяет радиус зоны объезда, пришедший извне
func ValidateAvoidRadius(radius float64) error {
	if err := validateRadius(radius); err != nil {
		return err
	}
	if radius > MaxAvoidRadius {
		return fmt.Errorf("%w: avoid radius must not exceed %.0f meters, got %v", ErrInvalidArgument, MaxAvoidRadius, radius)
	}
	return nil
}

func validateRadius(radius float64) error {
	if !isFinite(radius) || radius <= 0 {
		return fmt.Errorf("%w: radius must be a positive number of meters, got %v", ErrInvalidArgument, radius)
	}
	if radius > MaxRadiusMeters {
		return fmt.Errorf("%w: radius must not exceed %.0f meters, got %v", ErrInvalidArgument, MaxRadiusMeters, radius)
	}
	return nil
}
