package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/accessibility-reports/internal/config"
	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/domain/repository"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"
)

const (
	maxErrorBody = 64 * 1024

	// maxResponseBody - предел тела ответа провайдера
	maxResponseBody = 16 * 1024 * 1024
)

var errResponseTooLarge = errors.New("response body too large")

type client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	profile    string
	format     string
	logger     *zap.Logger
}

// NewClient создает клиент openrouteservice directions API
func NewClient(cfg *config.RoutingConfig, logger *zap.Logger) repository.RoutingRepository {
	return &client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		profile: cfg.Profile,
		format:  cfg.Format,
		logger:  logger,
	}
}

type directionsOptions struct {
	AvoidPolygons *geojson.Geometry `json:"avoid_polygons,omitempty"`
}

type directionsRequest struct {
	Coordinates [][2]float64       `json:"coordinates"`
	Options     *directionsOptions `json:"options,omitempty"`
}

// Directions строит пешеходный маршрут между двумя точками
func (c *client) Directions(ctx context.Context, req domain.RouteRequest) (*domain.Route, error) {
	profile := req.Profile
	if profile == "" {
		profile = c.profile
	}

	body := directionsRequest{
		// провайдер ожидает [lon, lat]
		Coordinates: [][2]float64{
			{req.Origin.Lon, req.Origin.Lat},
			{req.Destination.Lon, req.Destination.Lat},
		},
	}
	if len(req.AvoidPolygons) > 0 {
		body.Options = &directionsOptions{AvoidPolygons: geojson.NewGeometry(req.AvoidPolygons)}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	c.logger.Debug("Calling ORS Directions API",
		zap.String("profile", profile),
		zap.Int("avoid_polygons", len(req.AvoidPolygons)))

	status, respBody, err := c.post(ctx, profile, c.format, payload)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		message := extractProviderMessage(respBody)
		c.logger.Error("ORS API returned error",
			zap.Int("status_code", status),
			zap.String("message", message))
		return nil, &domain.ProviderError{StatusCode: status, Message: message}
	}

	route, err := parseRoute(respBody)
	if err != nil {
		c.logger.Error("Failed to parse ORS response", zap.Error(err))
		return nil, err
	}

	c.logger.Debug("ORS Directions API call successful", zap.Int("points", len(route.Points)))

	return route, nil
}

// Proxy пересылает запрос клиента провайдеру с серверным ключом
func (c *client) Proxy(ctx context.Context, profile string, body []byte) (int, []byte, error) {
	if profile == "" {
		profile = c.profile
	}
	return c.post(ctx, profile, "geojson", body)
}

func (c *client) post(ctx context.Context, profile, format string, payload []byte) (int, []byte, error) {
	if !domain.IsRoutingProfile(profile) {
		return 0, nil, fmt.Errorf("unknown routing profile %q", profile)
	}
	endpoint := fmt.Sprintf("%s/v2/directions/%s/%s", c.baseURL, url.PathEscape(profile), url.PathEscape(format))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		c.logger.Error("Failed to create request", zap.Error(err))
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, application/geo+json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Failed to execute request", zap.Error(err))
		return 0, nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(respBody) > maxResponseBody {
		c.logger.Error("ORS response exceeds limit", zap.Int("limit_bytes", maxResponseBody))
		return 0, nil, fmt.Errorf("failed to read response: %w", errResponseTooLarge)
	}

	return resp.StatusCode, respBody, nil
}

// responseProbe определяет форму ответа: FeatureCollection или routes
type responseProbe struct {
	Features json.RawMessage `json:"features"`
	Routes   []struct {
		Summary  summary `json:"summary"`
		Geometry string  `json:"geometry"`
	} `json:"routes"`
}

type summary struct {
	Distance *float64 `json:"distance"`
	Duration *float64 `json:"duration"`
}

func parseRoute(body []byte) (*domain.Route, error) {
	var probe responseProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(probe.Features) > 0 && string(probe.Features) != "null" {
		return parseFeatureCollection(body)
	}

	if len(probe.Routes) > 0 && probe.Routes[0].Geometry != "" {
		coords, _, err := polyline.DecodeCoords([]byte(probe.Routes[0].Geometry))
		if err != nil {
			return nil, fmt.Errorf("failed to decode route polyline: %w", err)
		}
		if len(coords) == 0 {
			return nil, domain.ErrRouteNotFound
		}

		points := make([][2]float64, len(coords))
		for i, c := range coords {
			// полилиния уже в порядке [lat, lon]
			points[i] = [2]float64{c[0], c[1]}
		}
		return &domain.Route{
			Points:          points,
			DistanceMeters:  probe.Routes[0].Summary.Distance,
			DurationSeconds: probe.Routes[0].Summary.Duration,
		}, nil
	}

	return nil, domain.ErrRouteNotFound
}

func parseFeatureCollection(body []byte) (*domain.Route, error) {
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode feature collection: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, domain.ErrRouteNotFound
	}

	feature := fc.Features[0]
	line, ok := feature.Geometry.(orb.LineString)
	if !ok || len(line) == 0 {
		return nil, domain.ErrRouteNotFound
	}

	points := make([][2]float64, len(line))
	for i, p := range line {
		points[i] = [2]float64{p.Lat(), p.Lon()}
	}

	route := &domain.Route{Points: points}
	if s, ok := feature.Properties["summary"].(map[string]interface{}); ok {
		if d, ok := s["distance"].(float64); ok {
			route.DistanceMeters = &d
		}
		if d, ok := s["duration"].(float64); ok {
			route.DurationSeconds = &d
		}
	}
	return route, nil
}

// extractProviderMessage достаёт диагностику из тела ошибки провайдера.
// Встречаются формы {"error":{"message":...}}, {"error":"..."}, {"detail":"..."}, {"message":"..."}.
func extractProviderMessage(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err == nil {
		if raw, ok := payload["error"]; ok {
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(raw, &nested); err == nil && nested.Message != "" {
				return nested.Message
			}
			var text string
			if err := json.Unmarshal(raw, &text); err == nil && text != "" {
				return text
			}
		}
		for _, key := range []string{"detail", "message"} {
			var text string
			if err := json.Unmarshal(payload[key], &text); err == nil && text != "" {
				return text
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response"
	}
	return text
}
