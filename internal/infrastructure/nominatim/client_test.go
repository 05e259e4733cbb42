package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/accessibility-reports/internal/config"
	"github.com/accessibility-reports/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(serverURL string, rps float64) *client {
	logger, _ := zap.NewDevelopment()
	cfg := &config.GeocodingConfig{
		BaseURL:        serverURL,
		UserAgent:      "accessibility-reports-test",
		RequestsPerSec: rps,
		RequestTimeout: 5,
	}
	return NewClient(cfg, logger).(*client)
}

func TestClient_Search(t *testing.T) {
	t.Run("parses candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search", r.URL.Path)
			assert.Equal(t, "Piata Unirii", r.URL.Query().Get("q"))
			assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			assert.Equal(t, "accessibility-reports-test", r.Header.Get("User-Agent"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"lat":"44.4268","lon":"26.1025","display_name":"Piata Unirii, Bucuresti"},
				{"lat":"bad","lon":"26.1","display_name":"broken"}
			]`))
		}))
		defer server.Close()

		c := newTestClient(server.URL, 100)
		candidates, err := c.Search(context.Background(), "Piata Unirii", 3)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, 44.4268, candidates[0].Lat)
		assert.Equal(t, 26.1025, candidates[0].Lon)
		assert.Equal(t, "Piata Unirii, Bucuresti", candidates[0].DisplayName)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("slow down"))
		}))
		defer server.Close()

		c := newTestClient(server.URL, 100)
		_, err := c.Search(context.Background(), "x", 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 429")
	})

	t.Run("rate limiter spaces requests", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		c := newTestClient(server.URL, 10)
		start := time.Now()
		for i := 0; i < 3; i++ {
			_, err := c.Search(context.Background(), "q", 1)
			require.NoError(t, err)
		}
		// burst 1, затем по 100 мс на запрос
		assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		c := newTestClient("http://127.0.0.1:1", 0.001)
		c.limiter.Allow()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.Search(ctx, "q", 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rate limiter")
	})
}

func TestClient_Reverse(t *testing.T) {
	t.Run("parses address", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/reverse", r.URL.Path)
			assert.Equal(t, "44.4432", r.URL.Query().Get("lat"))
			assert.Equal(t, "26.0931", r.URL.Query().Get("lon"))
			_, _ = w.Write([]byte(`{
				"display_name": "12, Strada Academiei, Bucuresti, Romania",
				"address": {"house_number":"12","road":"Strada Academiei","town":"Bucuresti","country":"Romania"}
			}`))
		}))
		defer server.Close()

		c := newTestClient(server.URL, 100)
		addr, err := c.Reverse(context.Background(), 44.4432, 26.0931)
		require.NoError(t, err)
		assert.Equal(t, "12, Strada Academiei, Bucuresti, Romania", addr.DisplayName)
		require.NotNil(t, addr.Road)
		assert.Equal(t, "Strada Academiei", *addr.Road)
		require.NotNil(t, addr.City)
		assert.Equal(t, "Bucuresti", *addr.City)
		assert.Nil(t, addr.Postcode)
	})

	t.Run("unable to geocode", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
		}))
		defer server.Close()

		c := newTestClient(server.URL, 100)
		addr, err := c.Reverse(context.Background(), 0, 0)
		assert.Nil(t, addr)
		assert.ErrorIs(t, err, domain.ErrLocationNotFound)
	})
}
