package repository

import (
	"context"

	"github.com/accessibility-reports/internal/domain"
	"github.com/google/uuid"
)

// ReportRepository - хранилище отчётов о препятствиях
type ReportRepository interface {
	// Create сохраняет новый отчёт
	Create(ctx context.Context, report *domain.Report) error

	// GetByID возвращает отчёт; domain.ErrReportNotFound, если его нет
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Report, error)

	// List возвращает отчёты, новые первыми
	List(ctx context.Context, filter domain.ReportFilter) ([]*domain.Report, error)

	// Count возвращает число отчётов по фильтру (skip/limit игнорируются)
	Count(ctx context.Context, filter domain.ReportFilter) (int, error)

	// UpdateAddress сохраняет адрес, найденный обратным геокодированием
	UpdateAddress(ctx context.Context, id uuid.UUID, address string) error

	// Health проверяет доступность хранилища
	Health(ctx context.Context) error
}
