package usecase_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/accessibility-reports/internal/domain"
	apperrors "github.com/accessibility-reports/internal/pkg/errors"
	"github.com/accessibility-reports/internal/usecase"
	"github.com/accessibility-reports/internal/usecase/dto"
)

var testReportConfig = usecase.ReportConfig{
	MaxImages:     2,
	MaxImageSize:  64 * 1024,
	CacheTTL:      30 * time.Second,
	PresignExpiry: 15 * time.Minute,
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type reportMocks struct {
	repo    *MockReportRepository
	storage *MockImageStorage
	cache   *MockCacheRepository
	stream  *MockStreamRepository
}

func newReportUseCase() (*usecase.ReportUseCase, reportMocks) {
	m := reportMocks{
		repo:    &MockReportRepository{},
		storage: &MockImageStorage{},
		cache:   &MockCacheRepository{},
		stream:  &MockStreamRepository{},
	}
	uc := usecase.NewReportUseCase(m.repo, m.storage, m.cache, m.stream, zap.NewNop(), testReportConfig)
	return uc, m
}

func validSubmit(t *testing.T) dto.SubmitReportRequest {
	return dto.SubmitReportRequest{
		Name:        "Car on sidewalk",
		Category:    string(domain.CategoryBlockedSidewalk),
		Description: "Parked across the whole width",
		Latitude:    ptrFloat64(44.4432),
		Longitude:   ptrFloat64(26.0931),
		Images:      []dto.ImageUpload{{Filename: "photo.png", Data: pngImage(t)}},
	}
}

func TestReportUseCase_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("success stores images, saves report and publishes event", func(t *testing.T) {
		uc, m := newReportUseCase()
		req := validSubmit(t)

		m.storage.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "reports/") && strings.HasSuffix(key, "/0.png")
		}), mock.Anything, int64(len(req.Images[0].Data)), "image/png").Return(nil)
		m.repo.On("Create", ctx, mock.MatchedBy(func(r *domain.Report) bool {
			return r.Name == "Car on sidewalk" &&
				r.Category == domain.CategoryBlockedSidewalk &&
				r.Latitude == 44.4432 && r.Longitude == 26.0931 &&
				len(r.Images) == 1 && r.ID != uuid.Nil && !r.CreatedAt.IsZero()
		})).Return(nil)
		m.cache.On("DeleteByPrefix", ctx, usecase.ReportsListCachePrefix).Return(nil)
		m.stream.On("PublishToStream", ctx, domain.StreamReportCreated, mock.MatchedBy(func(e domain.ReportCreatedEvent) bool {
			return e.Category == domain.CategoryBlockedSidewalk && e.Latitude == 44.4432
		})).Return(nil)

		resp, err := uc.Submit(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, usecase.ReportSubmittedMessage, resp.Message)
		require.Len(t, resp.Report.Images, 1)
		assert.True(t, strings.HasPrefix(resp.Report.Images[0], "/uploads/reports/"+resp.Report.ID.String()))
		assert.Equal(t, resp.Report.Images[0], resp.Report.ImageSavedTo)
		m.storage.AssertExpectations(t)
		m.repo.AssertExpectations(t)
		m.cache.AssertExpectations(t)
		m.stream.AssertExpectations(t)
	})

	t.Run("unknown category is rejected before any side effect", func(t *testing.T) {
		uc, m := newReportUseCase()
		req := validSubmit(t)
		req.Category = "pothole"

		resp, err := uc.Submit(ctx, req)

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCategory)
		m.storage.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing name fails validation", func(t *testing.T) {
		uc, _ := newReportUseCase()
		req := validSubmit(t)
		req.Name = "   "

		_, err := uc.Submit(ctx, req)

		var validationErrs validator.ValidationErrors
		assert.True(t, errors.As(err, &validationErrs))
	})

	t.Run("image checks", func(t *testing.T) {
		tests := []struct {
			name   string
			images []dto.ImageUpload
			want   *apperrors.AppError
		}{
			{name: "no images", images: nil, want: apperrors.ErrImageRequired},
			{
				name:   "too many images",
				images: []dto.ImageUpload{{Data: pngImage(t)}, {Data: pngImage(t)}, {Data: pngImage(t)}},
				want:   apperrors.ErrInvalidRequest,
			},
			{
				name:   "too large",
				images: []dto.ImageUpload{{Filename: "big.png", Data: make([]byte, testReportConfig.MaxImageSize+1)}},
				want:   apperrors.ErrImageTooLarge,
			},
			{
				name:   "not an image",
				images: []dto.ImageUpload{{Filename: "notes.txt", Data: []byte("hello there")}},
				want:   apperrors.ErrUnsupportedImage,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				uc, m := newReportUseCase()
				req := validSubmit(t)
				req.Images = tt.images

				_, err := uc.Submit(ctx, req)

				assert.ErrorIs(t, err, tt.want)
				m.storage.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("coordinate checks", func(t *testing.T) {
		tests := []struct {
			name     string
			lat, lon *float64
		}{
			{name: "neither given and photo has no GPS"},
			{name: "only latitude", lat: ptrFloat64(44.4)},
			{name: "latitude out of range", lat: ptrFloat64(91), lon: ptrFloat64(26)},
			{name: "longitude out of range", lat: ptrFloat64(44), lon: ptrFloat64(-181)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				uc, m := newReportUseCase()
				req := validSubmit(t)
				req.Latitude, req.Longitude = tt.lat, tt.lon

				_, err := uc.Submit(ctx, req)

				assert.ErrorIs(t, err, apperrors.ErrInvalidCoordinates)
				m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("storage failure removes already stored images", func(t *testing.T) {
		uc, m := newReportUseCase()
		req := validSubmit(t)
		req.Images = append(req.Images, dto.ImageUpload{Filename: "second.png", Data: pngImage(t)})

		var firstKey string
		m.storage.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasSuffix(key, "/0.png")
		}), mock.Anything, mock.Anything, "image/png").Run(func(args mock.Arguments) {
			firstKey = args.String(1)
		}).Return(nil)
		m.storage.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasSuffix(key, "/1.png")
		}), mock.Anything, mock.Anything, "image/png").Return(errors.New("disk full"))
		m.storage.On("Delete", ctx, mock.Anything).Return(nil)

		_, err := uc.Submit(ctx, req)

		assert.ErrorIs(t, err, apperrors.ErrStorageError)
		m.storage.AssertCalled(t, "Delete", ctx, firstKey)
		m.storage.AssertNumberOfCalls(t, "Delete", 1)
		m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("database failure removes stored images", func(t *testing.T) {
		uc, m := newReportUseCase()

		m.storage.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		m.storage.On("Delete", ctx, mock.Anything).Return(nil)
		m.repo.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

		_, err := uc.Submit(ctx, validSubmit(t))

		assert.ErrorIs(t, err, apperrors.ErrDatabaseError)
		m.storage.AssertNumberOfCalls(t, "Delete", 1)
		m.stream.AssertNotCalled(t, "PublishToStream", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publish and cache failures are not fatal", func(t *testing.T) {
		uc, m := newReportUseCase()

		m.storage.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		m.repo.On("Create", ctx, mock.Anything).Return(nil)
		m.cache.On("DeleteByPrefix", ctx, mock.Anything).Return(errors.New("redis down"))
		m.stream.On("PublishToStream", ctx, mock.Anything, mock.Anything).Return(errors.New("redis down"))

		resp, err := uc.Submit(ctx, validSubmit(t))

		require.NoError(t, err)
		assert.NotNil(t, resp)
	})

	t.Run("works without cache and stream", func(t *testing.T) {
		repo := &MockReportRepository{}
		storage := &MockImageStorage{}
		uc := usecase.NewReportUseCase(repo, storage, nil, nil, zap.NewNop(), testReportConfig)

		storage.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		repo.On("Create", ctx, mock.Anything).Return(nil)

		resp, err := uc.Submit(ctx, validSubmit(t))

		require.NoError(t, err)
		assert.Equal(t, domain.CategoryBlockedSidewalk, resp.Report.Category)
	})
}

func TestReportUseCase_List(t *testing.T) {
	ctx := context.Background()
	defaultFilter := domain.ReportFilter{Skip: 0, Limit: domain.DefaultReportsLimit}
	reports := []*domain.Report{
		{ID: uuid.New(), Name: "b", Category: domain.CategoryBlockedEntrance, Latitude: 1, Longitude: 2, Images: []string{"reports/b/0.jpg"}},
		{ID: uuid.New(), Name: "a", Category: domain.CategoryBlockedSidewalk, Latitude: 3, Longitude: 4},
	}

	t.Run("cache miss loads from store and caches the page", func(t *testing.T) {
		uc, m := newReportUseCase()
		key := "reports:list:0:100:"

		m.cache.On("Get", ctx, key).Return(nil, nil)
		m.repo.On("List", ctx, defaultFilter).Return(reports, nil)
		m.repo.On("Count", ctx, defaultFilter).Return(2, nil)
		m.cache.On("Set", ctx, key, mock.Anything, testReportConfig.CacheTTL).Return(nil)

		resp, cached, err := uc.List(ctx, dto.ListReportsRequest{})

		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, 2, resp.Total)
		require.Len(t, resp.Reports, 2)
		assert.Equal(t, "b", resp.Reports[0].Name)
		assert.Equal(t, []string{"/uploads/reports/b/0.jpg"}, resp.Reports[0].Images)
		assert.Empty(t, resp.Reports[1].Images)
		m.cache.AssertExpectations(t)
	})

	t.Run("cache hit skips the store", func(t *testing.T) {
		uc, m := newReportUseCase()
		page := dto.ReportListResponse{Reports: []dto.ReportResponse{{Name: "cached"}}, Total: 1, Limit: 10}
		data, err := json.Marshal(page)
		require.NoError(t, err)

		m.cache.On("Get", ctx, "reports:list:5:10:blocked_crosswalk").Return(data, nil)

		resp, cached, err := uc.List(ctx, dto.ListReportsRequest{Skip: 5, Limit: 10, Category: "blocked_crosswalk"})

		require.NoError(t, err)
		assert.True(t, cached)
		assert.Equal(t, "cached", resp.Reports[0].Name)
		m.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("cache errors fall through to the store", func(t *testing.T) {
		uc, m := newReportUseCase()

		m.cache.On("Get", ctx, mock.Anything).Return(nil, errors.New("redis down"))
		m.repo.On("List", ctx, defaultFilter).Return([]*domain.Report{}, nil)
		m.repo.On("Count", ctx, defaultFilter).Return(0, nil)
		m.cache.On("Set", ctx, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

		resp, _, err := uc.List(ctx, dto.ListReportsRequest{})

		require.NoError(t, err)
		assert.NotNil(t, resp.Reports)
		assert.Empty(t, resp.Reports)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		uc, _ := newReportUseCase()

		for _, req := range []dto.ListReportsRequest{
			{Skip: -1},
			{Limit: 5000},
			{Category: "pothole"},
		} {
			_, _, err := uc.List(ctx, req)
			var validationErrs validator.ValidationErrors
			assert.True(t, errors.As(err, &validationErrs), "request %+v", req)
		}
	})

	t.Run("store error", func(t *testing.T) {
		uc, m := newReportUseCase()

		m.cache.On("Get", ctx, mock.Anything).Return(nil, nil)
		m.repo.On("List", ctx, defaultFilter).Return(nil, errors.New("boom"))

		_, _, err := uc.List(ctx, dto.ListReportsRequest{})

		assert.ErrorIs(t, err, apperrors.ErrDatabaseError)
	})
}

func TestReportUseCase_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		uc, m := newReportUseCase()
		id := uuid.New()
		m.repo.On("GetByID", ctx, id).Return(&domain.Report{ID: id, Name: "gate"}, nil)

		resp, err := uc.Get(ctx, id.String())

		require.NoError(t, err)
		assert.Equal(t, id, resp.ID)
	})

	t.Run("not found", func(t *testing.T) {
		uc, m := newReportUseCase()
		id := uuid.New()
		m.repo.On("GetByID", ctx, id).Return(nil, domain.ErrReportNotFound)

		_, err := uc.Get(ctx, id.String())

		assert.ErrorIs(t, err, apperrors.ErrReportNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		uc, m := newReportUseCase()

		_, err := uc.Get(ctx, "42")

		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		m.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestReportUseCase_Categories(t *testing.T) {
	uc, _ := newReportUseCase()

	categories := uc.Categories()

	require.Len(t, categories, 4)
	colors := make([]string, 0, len(categories))
	for _, c := range categories {
		colors = append(colors, c.Color)
	}
	assert.Equal(t, []string{"green", "orange", "yellow", "black"}, colors)
}

func TestReportUseCase_OpenImage(t *testing.T) {
	ctx := context.Background()
	key := "reports/abc/0.jpg"

	t.Run("presigned url", func(t *testing.T) {
		uc, m := newReportUseCase()
		m.storage.On("PresignedURL", ctx, key, testReportConfig.PresignExpiry).Return("http://minio/signed", nil)

		url, rc, err := uc.OpenImage(ctx, "/"+key)

		require.NoError(t, err)
		assert.Equal(t, "http://minio/signed", url)
		assert.Nil(t, rc)
	})

	t.Run("stream from local storage", func(t *testing.T) {
		uc, m := newReportUseCase()
		m.storage.On("PresignedURL", ctx, key, mock.Anything).Return("", nil)
		m.storage.On("Get", ctx, key).Return(io.NopCloser(strings.NewReader("jpeg")), nil)

		url, rc, err := uc.OpenImage(ctx, key)

		require.NoError(t, err)
		assert.Empty(t, url)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "jpeg", string(data))
	})

	t.Run("missing image", func(t *testing.T) {
		uc, m := newReportUseCase()
		m.storage.On("PresignedURL", ctx, key, mock.Anything).Return("", nil)
		m.storage.On("Get", ctx, key).Return(nil, domain.ErrImageNotFound)

		_, _, err := uc.OpenImage(ctx, key)

		assert.ErrorIs(t, err, apperrors.ErrImageNotFound)
	})

	t.Run("path traversal", func(t *testing.T) {
		uc, m := newReportUseCase()

		_, _, err := uc.OpenImage(ctx, "../etc/passwd")

		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		m.storage.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}
