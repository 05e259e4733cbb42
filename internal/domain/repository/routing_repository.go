package repository

import (
	"context"

	"github.com/accessibility-reports/internal/domain"
)

// RoutingRepository - провайдер пешеходных маршрутов
type RoutingRepository interface {
	// Directions строит маршрут; зоны объезда передаются, только если они есть
	Directions(ctx context.Context, req domain.RouteRequest) (*domain.Route, error)

	// Proxy пересылает тело запроса провайдеру как есть и возвращает статус и ответ
	Proxy(ctx context.Context, profile string, body []byte) (int, []byte, error)
}
