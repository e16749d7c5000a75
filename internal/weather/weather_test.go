package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

func forecastServer(t *testing.T, status int, body interface{}, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "2026-11-20", r.URL.Query().Get("date"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		APIKey:           "secret",
		Timeout:          time.Second,
		CacheTTL:         time.Hour,
		RateLimit:        1000,
		RateBurst:        10,
		MaxRetries:       0,
		BreakerThreshold: 2,
		BreakerTimeout:   time.Minute,
	}
}

var eventDate = time.Date(2026, 11, 20, 18, 0, 0, 0, time.UTC)

// ==========================
// Client
// ==========================

func TestClient_Forecast(t *testing.T) {
	var calls int32
	srv := forecastServer(t, http.StatusOK, Forecast{Condition: "Light Rain", TemperatureC: 24}, &calls)

	c, err := NewClient(testConfig(srv.URL), nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	f, err := c.Forecast(context.Background(), 12.9716, 77.5946, eventDate)
	require.NoError(t, err)
	assert.Equal(t, "Light Rain", f.Condition)
	assert.Equal(t, 24.0, f.TemperatureC)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_ForecastIsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var calls int32
	srv := forecastServer(t, http.StatusOK, Forecast{Condition: "Clear", TemperatureC: 30}, &calls)

	c, err := NewClient(testConfig(srv.URL), rdb, logger.NewTestLogger(t))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		f, err := c.Forecast(context.Background(), 12.9716, 77.5946, eventDate)
		require.NoError(t, err)
		assert.Equal(t, "Clear", f.Condition)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	key := CacheKey(12.9716, 77.5946, eventDate)
	assert.Equal(t, "weather:forecast:12.972:77.595:2026-11-20", key)
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestClient_UpstreamFailure(t *testing.T) {
	var calls int32
	srv := forecastServer(t, http.StatusInternalServerError, map[string]string{"error": "boom"}, &calls)

	c, err := NewClient(testConfig(srv.URL), nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = c.Forecast(context.Background(), 1, 2, eventDate)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrWeatherUnavailable)
}

func TestClient_EmptyConditionIsAnError(t *testing.T) {
	var calls int32
	srv := forecastServer(t, http.StatusOK, map[string]float64{"temperatureC": 20}, &calls)

	c, err := NewClient(testConfig(srv.URL), nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = c.Forecast(context.Background(), 1, 2, eventDate)
	assert.ErrorIs(t, err, apperrors.ErrWeatherUnavailable)
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := forecastServer(t, http.StatusInternalServerError, nil, &calls)

	c, err := NewClient(testConfig(srv.URL), nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := c.Forecast(context.Background(), 1, 2, eventDate)
		assert.ErrorIs(t, err, apperrors.ErrWeatherUnavailable)
	}

	assert.Equal(t, "open", c.BreakerState())
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_CancelledContext(t *testing.T) {
	var calls int32
	srv := forecastServer(t, http.StatusOK, Forecast{Condition: "Clear"}, &calls)

	cfg := testConfig(srv.URL)
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	c, err := NewClient(cfg, nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = c.Forecast(context.Background(), 1, 2, eventDate)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Forecast(ctx, 3, 4, eventDate)
	assert.ErrorIs(t, err, apperrors.ErrWeatherUnavailable)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, nil, logger.NewNoOpLogger())
	assert.Error(t, err)
}

// ==========================
// Policy
// ==========================

func TestPolicy_RequiresIndoor(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		forecast Forecast
		expected bool
	}{
		{"clear and mild", Forecast{Condition: "Clear", TemperatureC: 25}, false},
		{"rain", Forecast{Condition: "Heavy RAIN", TemperatureC: 22}, true},
		{"drizzle", Forecast{Condition: "drizzle", TemperatureC: 18}, true},
		{"thunderstorms", Forecast{Condition: "Scattered Thunderstorms", TemperatureC: 28}, true},
		{"showers", Forecast{Condition: "Light showers", TemperatureC: 20}, true},
		{"at threshold", Forecast{Condition: "Sunny", TemperatureC: 35}, false},
		{"above threshold", Forecast{Condition: "Sunny", TemperatureC: 35.5}, true},
		{"empty", Forecast{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.RequiresIndoor(tt.forecast))
		})
	}
}
