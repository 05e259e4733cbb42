package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/accessibility-reports/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestRepo(t *testing.T) (*DB, *reportRepository) {
	t.Helper()
	db, err := Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, NewReportRepository(db).(*reportRepository)
}

func testReport(category domain.Category, createdAt time.Time) *domain.Report {
	return &domain.Report{
		ID:          uuid.New(),
		Name:        "Mihai",
		Category:    category,
		Description: "Scaffolding blocks the whole sidewalk",
		Latitude:    44.4432,
		Longitude:   26.0931,
		Images:      []string{"reports/x/0.jpg"},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestReportRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestRepo(t)

	report := testReport(domain.CategoryBlockedBikeLane, time.Now())
	require.NoError(t, repo.Create(ctx, report))

	got, err := repo.GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, domain.CategoryBlockedBikeLane, got.Category)
	assert.Equal(t, []string{"reports/x/0.jpg"}, got.Images)
	assert.True(t, report.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.Address)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestReportRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestRepo(t)

	base := time.Now().Add(-time.Hour)
	older := testReport(domain.CategoryBlockedSidewalk, base)
	newer := testReport(domain.CategoryBlockedEntrance, base.Add(time.Minute))
	newest := testReport(domain.CategoryBlockedSidewalk, base.Add(2*time.Minute))
	newest.Images = nil
	for _, r := range []*domain.Report{older, newer, newest} {
		require.NoError(t, repo.Create(ctx, r))
	}

	all, err := repo.List(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newest.ID, all[0].ID)
	assert.Equal(t, []string{}, all[0].Images)
	assert.Equal(t, older.ID, all[2].ID)

	page, err := repo.List(ctx, domain.ReportFilter{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, newer.ID, page[0].ID)

	sidewalks, err := repo.List(ctx, domain.ReportFilter{Category: domain.CategoryBlockedSidewalk})
	require.NoError(t, err)
	assert.Len(t, sidewalks, 2)

	count, err := repo.Count(ctx, domain.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = repo.Count(ctx, domain.ReportFilter{Category: domain.CategoryBlockedEntrance})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReportRepository_UpdateAddress(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestRepo(t)

	report := testReport(domain.CategoryBlockedCrosswalk, time.Now())
	require.NoError(t, repo.Create(ctx, report))

	require.NoError(t, repo.UpdateAddress(ctx, report.ID, "Bulevardul Unirii 1"))

	got, err := repo.GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Address)
	assert.Equal(t, "Bulevardul Unirii 1", *got.Address)

	assert.ErrorIs(t, repo.UpdateAddress(ctx, uuid.New(), "x"), domain.ErrReportNotFound)
}

func TestOpen_ReopensExistingDatabase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	report := testReport(domain.CategoryBlockedSidewalk, time.Now())
	require.NoError(t, NewReportRepository(db).Create(ctx, report))
	require.NoError(t, db.Close())

	db, err = Open(dir, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	got, err := NewReportRepository(db).GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)
	assert.NoError(t, db.Health(ctx))
}
