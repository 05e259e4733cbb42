package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/domain/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type reportRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewReportRepository создает репозиторий отчётов на SQLite
func NewReportRepository(db *DB) repository.ReportRepository {
	return &reportRepository{db: db, logger: db.logger}
}

type reportRow struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	Category    string  `db:"category"`
	Description string  `db:"description"`
	Latitude    float64 `db:"latitude"`
	Longitude   float64 `db:"longitude"`
	Images      string  `db:"images"`
	Address     *string `db:"address"`
	CreatedAt   int64   `db:"created_at"`
	UpdatedAt   int64   `db:"updated_at"`
}

func (r reportRow) toDomain() (*domain.Report, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parse report id %q: %w", r.ID, err)
	}
	images := []string{}
	if r.Images != "" {
		if err := json.Unmarshal([]byte(r.Images), &images); err != nil {
			return nil, fmt.Errorf("decode images of %s: %w", r.ID, err)
		}
	}
	return &domain.Report{
		ID:          id,
		Name:        r.Name,
		Category:    domain.Category(r.Category),
		Description: r.Description,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Images:      images,
		Address:     r.Address,
		CreatedAt:   time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt:   time.Unix(0, r.UpdatedAt).UTC(),
	}, nil
}

const reportColumns = `id, name, category, description, latitude, longitude, images, address, created_at, updated_at`

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	images := report.Images
	if images == nil {
		images = []string{}
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}

	query := `INSERT INTO reports (` + reportColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		report.ID.String(),
		report.Name,
		string(report.Category),
		report.Description,
		report.Latitude,
		report.Longitude,
		string(encoded),
		report.Address,
		report.CreatedAt.UnixNano(),
		report.UpdatedAt.UnixNano(),
	)
	if err != nil {
		r.logger.Error("failed to insert report", zap.Error(err), zap.String("id", report.ID.String()))
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	var row reportRow
	err := r.db.GetContext(ctx, &row, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return row.toDomain()
}

func (r *reportRepository) List(ctx context.Context, filter domain.ReportFilter) ([]*domain.Report, error) {
	filter = filter.Normalize()

	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE (? = '' OR category = ?)
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`

	var rows []reportRow
	category := string(filter.Category)
	if err := r.db.SelectContext(ctx, &rows, query, category, category, filter.Limit, filter.Skip); err != nil {
		r.logger.Error("failed to list reports", zap.Error(err))
		return nil, fmt.Errorf("list reports: %w", err)
	}

	reports := make([]*domain.Report, 0, len(rows))
	for _, row := range rows {
		report, err := row.toDomain()
		if err != nil {
			r.logger.Warn("skipping corrupt report row", zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (r *reportRepository) Count(ctx context.Context, filter domain.ReportFilter) (int, error) {
	var count int
	category := string(filter.Category)
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reports WHERE (? = '' OR category = ?)`, category, category)
	if err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return count, nil
}

func (r *reportRepository) UpdateAddress(ctx context.Context, id uuid.UUID, address string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET address = ?, updated_at = ? WHERE id = ?`,
		address, time.Now().UnixNano(), id.String())
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
