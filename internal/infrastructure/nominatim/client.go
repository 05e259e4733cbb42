package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/accessibility-reports/internal/config"
	"github.com/accessibility-reports/internal/domain"
	"github.com/accessibility-reports/internal/domain/repository"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxSearchLimit = 10

type client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient создает клиент Nominatim. Лимитер общий для всех вызовов:
// публичный Nominatim допускает не больше одного запроса в секунду.
func NewClient(cfg *config.GeocodingConfig, logger *zap.Logger) repository.GeocodingRepository {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}
	return &client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		logger:    logger,
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type reverseResult struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

// Search ищет места по строке запроса
func (c *client) Search(ctx context.Context, query string, limit int) ([]domain.GeocodeCandidate, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))

	var results []searchResult
	if err := c.get(ctx, "/search", params, &results); err != nil {
		return nil, err
	}

	candidates := make([]domain.GeocodeCandidate, 0, len(results))
	for _, r := range results {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lon, errLon := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLon != nil {
			c.logger.Warn("Skipping geocode result with bad coordinates",
				zap.String("display_name", r.DisplayName))
			continue
		}
		candidates = append(candidates, domain.GeocodeCandidate{
			Lat:         lat,
			Lon:         lon,
			DisplayName: r.DisplayName,
		})
	}

	return candidates, nil
}

// Reverse возвращает адрес точки
func (c *client) Reverse(ctx context.Context, lat, lon float64) (*domain.Address, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "jsonv2")

	var result reverseResult
	if err := c.get(ctx, "/reverse", params, &result); err != nil {
		return nil, err
	}
	if result.Error != "" || result.DisplayName == "" {
		return nil, domain.ErrLocationNotFound
	}

	addr := &domain.Address{
		DisplayName: result.DisplayName,
		Road:        pick(result.Address, "road", "pedestrian", "footway"),
		HouseNumber: pick(result.Address, "house_number"),
		Suburb:      pick(result.Address, "suburb", "neighbourhood"),
		City:        pick(result.Address, "city", "town", "village"),
		Postcode:    pick(result.Address, "postcode"),
		Country:     pick(result.Address, "country"),
	}
	return addr, nil
}

func (c *client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path + "?" + params.Encode()
	c.logger.Debug("Calling Nominatim API", zap.String("url", reqURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to execute request", zap.Error(err))
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Nominatim API returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)))
		return fmt.Errorf("nominatim API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("Failed to decode response", zap.Error(err))
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func pick(fields map[string]string, keys ...string) *string {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != "" {
			return &v
		}
	}
	return nil
}
