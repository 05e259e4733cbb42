package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidArgument - некорректные параметры построения геометрии (радиус, число точек, центр)
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDataQuality - у отдельной записи битые или отсутствующие координаты
	ErrDataQuality = errors.New("data quality")
)

// Location - источник координат для зоны объезда.
// Реализуется domain.Report и RawLocation.
type Location interface {
	// LocationID возвращает идентификатор записи (для диагностики, может быть пустым)
	LocationID() string

	// LatLon возвращает широту и долготу в градусах
	LatLon() (lat, lon float64, err error)
}

// DataQualityError описывает запись, пропущенную при построении зон объезда
type DataQualityError struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Err   error  `json:"-"`
}

func (e *DataQualityError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("location #%d (%s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("location #%d: %v", e.Index, e.Err)
}

func (e *DataQualityError) Unwrap() error {
	return e.Err
}

// Is позволяет проверять ошибку через errors.Is(err, ErrDataQuality)
func (e *DataQualityError) Is(target error) bool {
	return target == ErrDataQuality
}

// MarshalJSON добавляет текст причины в JSON
func (e *DataQualityError) MarshalJSON() ([]byte, error) {
	type alias DataQualityError
	reason := ""
	if e.Err != nil {
		reason = e.Err.Error()
	}
	return json.Marshal(struct {
		*alias
		Reason string `json:"reason"`
	}{alias: (*alias)(e), Reason: reason})
}

// RawCoordinate хранит координату в исходном виде: JSON-число или строка.
type RawCoordinate string

// UnmarshalJSON принимает как "44.4432", так и 44.4432
func (c *RawCoordinate) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*c = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = RawCoordinate(s)
		return nil
	}
	*c = RawCoordinate(trimmed)
	return nil
}

// Float разбирает координату
func (c RawCoordinate) Float() (float64, error) {
	s := strings.TrimSpace(string(c))
	if s == "" {
		return 0, errors.New("missing value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

// RawLocation - координаты в том виде, в каком их отдаёт хранилище отчётов
type RawLocation struct {
	ID        string        `json:"id,omitempty" yaml:"id,omitempty"`
	Latitude  RawCoordinate `json:"latitude" yaml:"latitude"`
	Longitude RawCoordinate `json:"longitude" yaml:"longitude"`
}

func (l RawLocation) LocationID() string {
	return l.ID
}

func (l RawLocation) LatLon() (float64, float64, error) {
	lat, err := l.Latitude.Float()
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	lon, err := l.Longitude.Float()
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	if !ValidateCoordinates(lat, lon) {
		return 0, 0, fmt.Errorf("coordinates out of range: %v, %v", lat, lon)
	}
	return lat, lon, nil
}
