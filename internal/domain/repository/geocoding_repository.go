package repository

import (
	"context"

	"github.com/accessibility-reports/internal/domain"
)

// GeocodingRepository - провайдер геокодирования
type GeocodingRepository interface {
	// Search ищет места по строке запроса
	Search(ctx context.Context, query string, limit int) ([]domain.GeocodeCandidate, error)

	// Reverse возвращает адрес точки
	Reverse(ctx context.Context, lat, lon float64) (*domain.Address, error)
}
