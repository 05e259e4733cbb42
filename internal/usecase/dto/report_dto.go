package dto

import (
	"time"

	"github.com/accessibility-reports/internal/domain"
	"github.com/google/uuid"
)

// UploadsPathPrefix - публичный путь к фотографиям отчётов
const UploadsPathPrefix = "/uploads/"

// ImageUpload - файл фотографии из multipart-формы
type ImageUpload struct {
	Filename string
	Data     []byte
}

// SubmitReportRequest - новый отчёт о препятствии.
// Координаты необязательны: без них берётся GPS из EXIF первой фотографии.
type SubmitReportRequest struct {
	Name        string `validate:"required,max=200"`
	Category    string `validate:"required"`
	Description string `validate:"max=2000"`
	Latitude    *float64
	Longitude   *float64
	Images      []ImageUpload `validate:"-"`
}

// ListReportsRequest - параметры списка отчётов
type ListReportsRequest struct {
	Skip     int    `query:"skip" validate:"min=0"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=1000"`
	Category string `query:"category" validate:"omitempty,report_category"`
}

// ReportResponse - отчёт в ответе API
type ReportResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Category     domain.Category `json:"category"`
	Description  string          `json:"description"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	Images       []string        `json:"images"`
	ImageSavedTo string          `json:"image_saved_to,omitempty"`
	Address      *string         `json:"address,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewReportResponse преобразует доменный отчёт; ключи фотографий превращаются в URL
func NewReportResponse(r *domain.Report) ReportResponse {
	images := make([]string, 0, len(r.Images))
	for _, key := range r.Images {
		images = append(images, UploadsPathPrefix+key)
	}
	resp := ReportResponse{
		ID:          r.ID,
		Name:        r.Name,
		Category:    r.Category,
		Description: r.Description,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Images:      images,
		Address:     r.Address,
		CreatedAt:   r.CreatedAt,
	}
	if len(images) > 0 {
		resp.ImageSavedTo = images[0]
	}
	return resp
}

// SubmitReportResponse - ответ на создание отчёта
type SubmitReportResponse struct {
	Message string         `json:"message"`
	Report  ReportResponse `json:"report"`
}

// ReportListResponse - страница отчётов
type ReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
	Total   int              `json:"total"`
	Skip    int              `json:"skip"`
	Limit   int              `json:"limit"`
}
