// Package weather is the forecast oracle the recommendation engine consults
// before scoring: an HTTP client guarded by a rate limiter and a circuit
// breaker, with forecasts cached in redis.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	apperrors "venue-recommender/internal/common/errors"
	apphttp "venue-recommender/internal/common/http"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
)

// Forecast is the oracle's answer for one location and day.
type Forecast struct {
	Condition    string  `json:"condition"`
	TemperatureC float64 `json:"temperatureC"`
}

type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	CacheTTL         time.Duration
	RateLimit        float64
	RateBurst        int
	MaxRetries       int
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

type Client struct {
	cfg     Config
	http    *apphttp.Client
	breaker *gobreaker.CircuitBreaker[Forecast]
	limiter *rate.Limiter
	cache   *redis.Client
	logger  logger.Logger
}

// NewClient builds a forecast client. cache may be nil.
func NewClient(cfg Config, cache *redis.Client, log logger.Logger, opts ...apphttp.Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("weather base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	log = log.WithFields(map[string]interface{}{"component": "weather"})
	httpOpts := append([]apphttp.Option{apphttp.WithRetries(cfg.MaxRetries)}, opts...)

	c := &Client{
		cfg:     cfg,
		http:    apphttp.NewClient(cfg.Timeout, httpOpts...),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		cache:   cache,
		logger:  log,
	}

	threshold := cfg.BreakerThreshold
	c.breaker = gobreaker.NewCircuitBreaker[Forecast](gobreaker.Settings{
		Name:        "weather-oracle",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	return c, nil
}

// BreakerState reports the circuit breaker state for health output.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// CacheKey rounds coordinates to about 100 m so nearby requests share an
// entry.
func CacheKey(lat, lon float64, date time.Time) string {
	return fmt.Sprintf("weather:forecast:%.3f:%.3f:%s", lat, lon, date.UTC().Format("2006-01-02"))
}

// Forecast returns the forecast for the given day. Every failure is
// reported as WEATHER_UNAVAILABLE.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, date time.Time) (Forecast, error) {
	key := CacheKey(lat, lon, date)
	if f, ok := c.cached(ctx, key); ok {
		return f, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Forecast{}, apperrors.NewWeatherUnavailableError(fmt.Errorf("rate limiter: %w", err))
	}

	f, err := c.breaker.Execute(func() (Forecast, error) {
		return c.fetch(ctx, lat, lon, date)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Debug("forecast short-circuited", map[string]interface{}{"state": c.BreakerState()})
		}
		return Forecast{}, apperrors.NewWeatherUnavailableError(err)
	}

	c.store(ctx, key, f)
	return f, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64, date time.Time) (Forecast, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))
	q.Set("date", date.UTC().Format("2006-01-02"))

	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		header.Set("X-API-Key", c.cfg.APIKey)
	}

	body, err := c.http.Get(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/forecast?"+q.Encode(), header)
	if err != nil {
		return Forecast{}, err
	}

	var f Forecast
	if err := json.Unmarshal(body, &f); err != nil {
		return Forecast{}, fmt.Errorf("decode forecast: %w", err)
	}
	if strings.TrimSpace(f.Condition) == "" {
		return Forecast{}, fmt.Errorf("forecast has no condition")
	}
	return f, nil
}

func (c *Client) cached(ctx context.Context, key string) (Forecast, bool) {
	if c.cache == nil {
		return Forecast{}, false
	}
	raw, err := c.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.CacheLookups.WithLabelValues("weather", "error").Inc()
			c.logger.Warn("forecast cache read failed", map[string]interface{}{"error": err.Error()})
		} else {
			metrics.CacheLookups.WithLabelValues("weather", "miss").Inc()
		}
		return Forecast{}, false
	}
	var f Forecast
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return Forecast{}, false
	}
	metrics.CacheLookups.WithLabelValues("weather", "hit").Inc()
	return f, true
}

func (c *Client) store(ctx context.Context, key string, f Forecast) {
	if c.cache == nil || c.cfg.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cfg.CacheTTL).Err(); err != nil {
		c.logger.Warn("forecast cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
