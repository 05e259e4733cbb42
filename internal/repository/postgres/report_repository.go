package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type reportRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewReportRepository создает репозиторий отчётов на PostgreSQL
func NewReportRepository(db *DB) repository.ReportRepository {
	return &reportRepository{
		db:     db,
		logger: db.logger,
	}
}

type reportRow struct {
	ID          uuid.UUID      `db:"id"`
	Name        string         `db:"name"`
	Category    string         `db:"category"`
	Description string         `db:"description"`
	Latitude    float64        `db:"latitude"`
	Longitude   float64        `db:"longitude"`
	Images      pq.StringArray `db:"images"`
	Address     *string        `db:"address"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r reportRow) toDomain() *domain.Report {
	images := []string(r.Images)
	if images == nil {
		images = []string{}
	}
	return &domain.Report{
		ID:          r.ID,
		Name:        r.Name,
		Category:    domain.Category(r.Category),
		Description: r.Description,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Images:      images,
		Address:     r.Address,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const reportColumns = `id, name, category, description, latitude, longitude, images, address, created_at, updated_at`

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		report.ID,
		report.Name,
		string(report.Category),
		report.Description,
		report.Latitude,
		report.Longitude,
		pq.Array(report.Images),
		report.Address,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert report", zap.Error(err), zap.String("id", report.ID.String()))
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	var row reportRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return row.toDomain(), nil
}

func (r *reportRepository) List(ctx context.Context, filter domain.ReportFilter) ([]*domain.Report, error) {
	filter = filter.Normalize()

	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE ($1 = '' OR category = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, query, string(filter.Category), filter.Limit, filter.Skip); err != nil {
		r.logger.Error("failed to list reports", zap.Error(err))
		return nil, fmt.Errorf("list reports: %w", err)
	}

	reports := make([]*domain.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, row.toDomain())
	}
	return reports, nil
}

func (r *reportRepository) Count(ctx context.Context, filter domain.ReportFilter) (int, error) {
	query := `SELECT COUNT(*) FROM reports WHERE ($1 = '' OR category = $1)`

	var count int
	if err := r.db.GetContext(ctx, &count, query, string(filter.Category)); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return count, nil
}

func (r *reportRepository) UpdateAddress(ctx context.Context, id uuid.UUID, address string) error {
	query := `UPDATE reports SET address = $2, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, address)
	if err != nil {
		return fmt.Errorf("update report address: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report address: %w", err)
	}
	if affected == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

func (r *reportRepository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}
