package errors

import "net/http"

var (
	ErrInvalidArgument = New(
		"INVALID_ARGUMENT",
		"Invalid geometry parameters",
		http.StatusBadRequest,
	)

	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidCategory = New(
		"INVALID_CATEGORY",
		"Unknown report category",
		http.StatusBadRequest,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrReportNotFound = New(
		"REPORT_NOT_FOUND",
		"Report not found",
		http.StatusNotFound,
	)

	ErrImageRequired = New(
		"IMAGE_REQUIRED",
		"At least one image is required",
		http.StatusBadRequest,
	)

	ErrImageTooLarge = New(
		"IMAGE_TOO_LARGE",
		"Image exceeds the maximum allowed size",
		http.StatusRequestEntityTooLarge,
	)

	ErrUnsupportedImage = New(
		"UNSUPPORTED_IMAGE",
		"Unsupported image format",
		http.StatusUnsupportedMediaType,
	)

	ErrImageNotFound = New(
		"IMAGE_NOT_FOUND",
		"Image not found",
		http.StatusNotFound,
	)

	ErrRouteNotFound = New(
		"ROUTE_NOT_FOUND",
		"No route found between the given points",
		http.StatusNotFound,
	)

	ErrRoutingProvider = New(
		"ROUTING_PROVIDER_ERROR",
		"Routing provider returned an error",
		http.StatusBadGateway,
	)

	ErrGeocoding = New(
		"GEOCODING_ERROR",
		"Geocoding provider returned an error",
		http.StatusBadGateway,
	)

	ErrLocationNotFound = New(
		"LOCATION_NOT_FOUND",
		"Location not found",
		http.StatusNotFound,
	)

	ErrStorageError = New(
		"STORAGE_ERROR",
		"Image storage operation failed",
		http.StatusInternalServerError,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
