package testhelpers

import (
	"github.com/accessibility-reports/internal/domain/repository"
	"github.com/accessibility-reports/internal/repository/postgres"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// NewDBForTest creates a postgres.DB with test database and logger
func NewDBForTest(db *sqlx.DB, logger *zap.Logger) *postgres.DB {
	return postgres.NewDBForTest(db, logger)
}

// NewReportRepositoryForTest creates a report repository with test database and logger
func NewReportRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.ReportRepository {
	pgDB := NewDBForTest(db, logger)
	return postgres.NewReportRepository(pgDB)
}
