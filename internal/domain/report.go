package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Category - тип препятствия; влияет только на цвет маркера
type Category string

const (
	CategoryBlockedSidewalk  Category = "blocked_sidewalk"
	CategoryBlockedBikeLane  Category = "blocked_bike_lane"
	CategoryBlockedCrosswalk Category = "blocked_crosswalk"
	CategoryBlockedEntrance  Category = "blocked_entrance"
)

// CategoryInfo - описание категории для клиента
type CategoryInfo struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Color    string   `json:"color"`
}

// CategoryInfos - категории в порядке отображения в легенде карты
var CategoryInfos = []CategoryInfo{
	{Category: CategoryBlockedSidewalk, Label: "Blocked sidewalk", Color: "green"},
	{Category: CategoryBlockedBikeLane, Label: "Blocked bike lane", Color: "orange"},
	{Category: CategoryBlockedCrosswalk, Label: "Blocked crosswalk", Color: "yellow"},
	{Category: CategoryBlockedEntrance, Label: "Blocked entrance", Color: "black"},
}

func (c Category) IsValid() bool {
	for _, info := range CategoryInfos {
		if info.Category == c {
			return true
		}
	}
	return false
}

var (
	ErrReportNotFound     = errors.New("report not found")
	ErrImageNotFound      = errors.New("image not found")
	ErrMissingCoordinates = errors.New("report has no coordinates")
)

// Report - сообщение о препятствии на пешеходном пути
type Report struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Category    Category  `json:"category" db:"category"`
	Description string    `json:"description" db:"description"`
	Latitude    float64   `json:"latitude" db:"latitude"`
	Longitude   float64   `json:"longitude" db:"longitude"`
	Images      []string  `json:"images" db:"-"`
	Address     *string   `json:"address,omitempty" db:"address"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// LocationID - идентификатор отчёта для диагностики зон объезда
func (r *Report) LocationID() string {
	if r == nil {
		return ""
	}
	return r.ID.String()
}

// LatLon - координаты отчёта; nil-отчёт считается записью без координат
func (r *Report) LatLon() (float64, float64, error) {
	if r == nil {
		return 0, 0, ErrMissingCoordinates
	}
	return r.Latitude, r.Longitude, nil
}

// ReportFilter - параметры выборки списка отчётов
type ReportFilter struct {
	Skip     int
	Limit    int
	Category Category
}

const (
	DefaultReportsLimit = 100
	MaxReportsLimit     = 1000
)

// Normalize приводит skip/limit к допустимым границам
func (f ReportFilter) Normalize() ReportFilter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultReportsLimit
	}
	if f.Limit > MaxReportsLimit {
		f.Limit = MaxReportsLimit
	}
	return f
}
