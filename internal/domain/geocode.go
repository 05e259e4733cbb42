package domain

import "errors"

var ErrLocationNotFound = errors.New("location not found")

// GeocodeCandidate - результат прямого геокодирования
type GeocodeCandidate struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
}

// Address - результат обратного геокодирования
type Address struct {
	DisplayName string  `json:"display_name"`
	Road        *string `json:"road,omitempty"`
	HouseNumber *string `json:"house_number,omitempty"`
	Suburb      *string `json:"suburb,omitempty"`
	City        *string `json:"city,omitempty"`
	Postcode    *string `json:"postcode,omitempty"`
	Country     *string `json:"country,omitempty"`
}
