package dto

import "github.com/accessibility-reports/internal/domain"

// GeocodeSearchRequest - поиск места по строке
type GeocodeSearchRequest struct {
	Query string `query:"q" validate:"required,min=2,max=256"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=10"`
}

// ReverseGeocodeRequest - запрос на обратное геокодирование
type ReverseGeocodeRequest struct {
	Lat float64 `query:"lat" validate:"latitude"`
	Lon float64 `query:"lon" validate:"longitude"`
}

// GeocodeSearchResponse - найденные места
type GeocodeSearchResponse struct {
	Results []domain.GeocodeCandidate `json:"results"`
	Total   int                       `json:"total"`
}
