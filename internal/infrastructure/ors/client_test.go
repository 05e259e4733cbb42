package ors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/accessibility-reports/internal/config"
	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"
)

const featureCollectionResponse = `{
	"type": "FeatureCollection",
	"features": [{
		"type": "Feature",
		"properties": {"summary": {"distance": 812.4, "duration": 584.9}},
		"geometry": {"type": "LineString", "coordinates": [[26.0931, 44.4432], [26.0950, 44.4440], [26.0975, 44.4451]]}
	}]
}`

func newTestClient(serverURL, format string) *client {
	logger, _ := zap.NewDevelopment()
	cfg := &config.RoutingConfig{
		BaseURL:        serverURL,
		APIKey:         "test_key",
		Profile:        "foot-walking",
		Format:         format,
		RequestTimeout: 5,
	}
	return NewClient(cfg, logger).(*client)
}

func TestClient_Directions(t *testing.T) {
	origin := domain.Point{Lat: 44.4432, Lon: 26.0931}
	destination := domain.Point{Lat: 44.4451, Lon: 26.0975}

	t.Run("sends lon lat coordinates and avoid polygons", func(t *testing.T) {
		var received map[string]json.RawMessage
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v2/directions/foot-walking/geojson", r.URL.Path)
			assert.Equal(t, "test_key", r.Header.Get("Authorization"))

			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &received))

			w.Header().Set("Content-Type", "application/geo+json")
			_, _ = w.Write([]byte(featureCollectionResponse))
		}))
		defer server.Close()

		zones, _, err := geo.BuildAvoidZones([]geo.RawLocation{{Latitude: "44.4440", Longitude: "26.0940"}}, 30)
		require.NoError(t, err)

		c := newTestClient(server.URL, "geojson")
		route, err := c.Directions(context.Background(), domain.RouteRequest{
			Origin:        origin,
			Destination:   destination,
			AvoidPolygons: zones,
		})
		require.NoError(t, err)

		var coords [][]float64
		require.NoError(t, json.Unmarshal(received["coordinates"], &coords))
		assert.Equal(t, [][]float64{{26.0931, 44.4432}, {26.0975, 44.4451}}, coords)

		var options struct {
			AvoidPolygons struct {
				Type        string          `json:"type"`
				Coordinates [][][][]float64 `json:"coordinates"`
			} `json:"avoid_polygons"`
		}
		require.NoError(t, json.Unmarshal(received["options"], &options))
		assert.Equal(t, "MultiPolygon", options.AvoidPolygons.Type)
		require.Len(t, options.AvoidPolygons.Coordinates, 1)
		assert.NoError(t, geo.ValidateAvoidZonesJSON(mustMarshal(t, options.AvoidPolygons)))

		require.Len(t, route.Points, 3)
		assert.Equal(t, [2]float64{44.4432, 26.0931}, route.Points[0])
		require.NotNil(t, route.DistanceMeters)
		assert.InDelta(t, 812.4, *route.DistanceMeters, 1e-9)
		require.NotNil(t, route.DurationSeconds)
		assert.InDelta(t, 584.9, *route.DurationSeconds, 1e-9)
	})

	t.Run("omits options without avoid zones", func(t *testing.T) {
		var received map[string]json.RawMessage
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &received))
			_, _ = w.Write([]byte(featureCollectionResponse))
		}))
		defer server.Close()

		c := newTestClient(server.URL, "geojson")
		_, err := c.Directions(context.Background(), domain.RouteRequest{Origin: origin, Destination: destination})
		require.NoError(t, err)

		_, hasOptions := received["options"]
		assert.False(t, hasOptions)
	})

	t.Run("decodes encoded polyline routes", func(t *testing.T) {
		encoded := polyline.EncodeCoords([][]float64{{44.4432, 26.0931}, {44.4451, 26.0975}})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/directions/foot-walking/json", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"routes": []map[string]interface{}{{
					"summary":  map[string]float64{"distance": 400, "duration": 290},
					"geometry": string(encoded),
				}},
			})
		}))
		defer server.Close()

		c := newTestClient(server.URL, "json")
		route, err := c.Directions(context.Background(), domain.RouteRequest{Origin: origin, Destination: destination})
		require.NoError(t, err)

		require.Len(t, route.Points, 2)
		assert.InDelta(t, 44.4432, route.Points[0][0], 1e-5)
		assert.InDelta(t, 26.0931, route.Points[0][1], 1e-5)
		assert.InDelta(t, 400, *route.DistanceMeters, 1e-9)
	})

	t.Run("provider error carries diagnostic", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":2003,"message":"Parameter 'avoid_polygons' has incorrect value"}}`))
		}))
		defer server.Close()

		c := newTestClient(server.URL, "geojson")
		route, err := c.Directions(context.Background(), domain.RouteRequest{Origin: origin, Destination: destination})
		assert.Nil(t, route)

		var providerErr *domain.ProviderError
		require.True(t, errors.As(err, &providerErr))
		assert.Equal(t, http.StatusBadRequest, providerErr.StatusCode)
		assert.Contains(t, providerErr.Message, "avoid_polygons")
	})

	t.Run("empty feature collection is route not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
		}))
		defer server.Close()

		c := newTestClient(server.URL, "geojson")
		_, err := c.Directions(context.Background(), domain.RouteRequest{Origin: origin, Destination: destination})
		assert.ErrorIs(t, err, domain.ErrRouteNotFound)
	})

	t.Run("unreachable provider", func(t *testing.T) {
		c := newTestClient("http://127.0.0.1:1", "geojson")
		_, err := c.Directions(context.Background(), domain.RouteRequest{Origin: origin, Destination: destination})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to execute request")
	})
}

func TestClient_Proxy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/directions/foot-walking/geojson", r.URL.Path)
		assert.Equal(t, "test_key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"coordinates":[[1,2],[3,4]]}`, string(body))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"detail":"verbatim"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, "geojson")
	status, body, err := c.Proxy(context.Background(), "", []byte(`{"coordinates":[[1,2],[3,4]]}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, status)
	assert.JSONEq(t, `{"detail":"verbatim"}`, string(body))
}

func TestClient_Proxy_UnknownProfile(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := newTestClient(server.URL, "geojson")
	for _, profile := range []string{"../../../admin/keys?x=", "foot-walking/../x", "wheelchair%2F.."} {
		_, _, err := c.Proxy(context.Background(), profile, []byte(`{}`))
		assert.Error(t, err, profile)
	}
	assert.False(t, called, "request with the API key must not leave the service")
}

func TestClient_ResponseTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := make([]byte, 1024*1024)
		for i := 0; i <= maxResponseBody/len(chunk); i++ {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL, "geojson")
	_, _, err := c.Proxy(context.Background(), "", []byte(`{}`))

	assert.ErrorIs(t, err, errResponseTooLarge)
}

func TestExtractProviderMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"nested error", `{"error":{"code":2010,"message":"Could not find routable point"}}`, "Could not find routable point"},
		{"string error", `{"error":"Access to this API has been disallowed"}`, "Access to this API has been disallowed"},
		{"detail", `{"detail":"Invalid API key"}`, "Invalid API key"},
		{"message", `{"message":"Rate limit exceeded"}`, "Rate limit exceeded"},
		{"plain text", "Bad Gateway", "Bad Gateway"},
		{"empty", "", "empty response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractProviderMessage([]byte(tt.body)))
		})
	}
}

func TestParseRoute_NonLineGeometry(t *testing.T) {
	body := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}]}`

	_, err := parseRoute([]byte(body))
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
