package geo

import (
	"fmt"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/xeipuuv/gojsonschema"
)

// multiPolygonSchema описывает геометрию, которую принимает провайдер маршрутов
// в options.avoid_polygons
const multiPolygonSchema = `{
  "$schema": "http://json-schema.org/draft-04/schema#",
  "type": "object",
  "required": ["type", "coordinates"],
  "properties": {
    "type": {"enum": ["MultiPolygon"]},
    "coordinates": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "array",
        "minItems": 1,
        "items": {
          "type": "array",
          "minItems": 4,
          "items": {
            "type": "array",
            "minItems": 2,
            "maxItems": 2,
            "items": [
              {"type": "number", "minimum": -180, "maximum": 180},
              {"type": "number", "minimum": -90, "maximum": 90}
            ]
          }
        }
      }
    }
  }
}`

var loadMultiPolygonSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(multiPolygonSchema))
})

// EncodeAvoidZones кодирует зоны объезда в GeoJSON-геометрию
func EncodeAvoidZones(zones orb.MultiPolygon) ([]byte, error) {
	return geojson.NewGeometry(zones).MarshalJSON()
}

// ValidateAvoidZones проверяет геометрию перед отправкой провайдеру:
// замкнутость колец и соответствие JSON-схеме MultiPolygon.
func ValidateAvoidZones(zones orb.MultiPolygon) error {
	for i, polygon := range zones {
		for j, ring := range polygon {
			if len(ring) == 0 || !ring.Closed() {
				return fmt.Errorf("%w: polygon %d ring %d is not closed", ErrInvalidArgument, i, j)
			}
		}
	}

	raw, err := EncodeAvoidZones(zones)
	if err != nil {
		return fmt.Errorf("encode avoid zones: %w", err)
	}
	return ValidateAvoidZonesJSON(raw)
}

// ValidateAvoidZonesJSON проверяет уже закодированную GeoJSON-геометрию
func ValidateAvoidZonesJSON(raw []byte) error {
	schema, err := loadMultiPolygonSchema()
	if err != nil {
		return fmt.Errorf("load avoid zones schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: avoid zones are not valid JSON: %v", ErrInvalidArgument, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("%w: avoid zones do not match MultiPolygon schema: %s", ErrInvalidArgument, strings.Join(problems, "; "))
	}
	return nil
}
