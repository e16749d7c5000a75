// Package recommendation turns event requirements into a ranked shortlist:
// weather override, candidate retrieval, scoring, ordering and truncation.
package recommendation

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"venue-recommender/internal/common/config"
	apperrors "venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/common/observability"
	"venue-recommender/internal/scoring"
	"venue-recommender/internal/venue"
	"venue-recommender/internal/weather"
)

// CatalogStore supplies candidate venues for a coarse filter.
type CatalogStore interface {
	FetchCandidates(ctx context.Context, f venue.CandidateFilter) ([]venue.Venue, error)
}

// WeatherOracle answers forecast queries for a location and day.
type WeatherOracle interface {
	Forecast(ctx context.Context, lat, lon float64, date time.Time) (weather.Forecast, error)
}

type Config struct {
	DefaultTopN        int
	ParallelThreshold  int
	MaxWorkers         int
	CapacityFloorRatio float64
	PriceCeilingSlack  float64
	CandidateLimit     int
	CatalogTimeout     time.Duration
	WeatherTimeout     time.Duration
	Policy             weather.Policy
}

// ConfigFrom maps the application config onto engine settings.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		DefaultTopN:        cfg.Scoring.DefaultTopN,
		ParallelThreshold:  cfg.Scoring.ParallelThreshold,
		MaxWorkers:         cfg.Scoring.MaxWorkers,
		CapacityFloorRatio: cfg.Scoring.CapacityFloorRatio,
		PriceCeilingSlack:  cfg.Scoring.PriceCeilingSlack,
		CandidateLimit:     cfg.Catalog.DefaultLimit,
		CatalogTimeout:     config.GetDuration(cfg.Scoring.CatalogTimeout),
		WeatherTimeout:     config.GetDuration(cfg.Scoring.WeatherTimeout),
		Policy: weather.Policy{
			RainKeywords:   cfg.Scoring.RainKeywords,
			HeatThresholdC: cfg.Scoring.HeatThresholdC,
		},
	}
}

func (c Config) withDefaults() Config {
	if c.DefaultTopN <= 0 {
		c.DefaultTopN = 10
	}
	if c.ParallelThreshold <= 0 {
		c.ParallelThreshold = 64
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = runtime.GOMAXPROCS(0)
	}
	if c.CapacityFloorRatio <= 0 {
		c.CapacityFloorRatio = 0.5
	}
	if c.PriceCeilingSlack < 0 {
		c.PriceCeilingSlack = 0
	}
	if c.CatalogTimeout <= 0 {
		c.CatalogTimeout = 5 * time.Second
	}
	if c.WeatherTimeout <= 0 {
		c.WeatherTimeout = 3 * time.Second
	}
	defaults := weather.DefaultPolicy()
	if len(c.Policy.RainKeywords) == 0 {
		c.Policy.RainKeywords = defaults.RainKeywords
	}
	if c.Policy.HeatThresholdC <= 0 {
		c.Policy.HeatThresholdC = defaults.HeatThresholdC
	}
	return c
}

// Engine is stateless across calls and safe for concurrent use.
type Engine struct {
	calc    *scoring.Calculator
	catalog CatalogStore
	oracle  WeatherOracle
	cfg     Config
	logger  logger.Logger
	obs     *observability.Observability
}

// NewEngine wires the engine. oracle and obs may be nil.
func NewEngine(calc *scoring.Calculator, catalog CatalogStore, oracle WeatherOracle, cfg Config, log logger.Logger, obs *observability.Observability) *Engine {
	if calc == nil {
		calc = scoring.NewDefaultCalculator()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Engine{
		calc:    calc,
		catalog: catalog,
		oracle:  oracle,
		cfg:     cfg.withDefaults(),
		logger:  log.WithFields(map[string]interface{}{"component": "recommendation"}),
		obs:     obs,
	}
}

// Result is a ranked shortlist plus what the engine decided on the way.
type Result struct {
	RequestID       string              `json:"requestId"`
	Recommendations []venue.ScoredVenue `json:"recommendations"`
	IndoorOverride  bool                `json:"indoorOverride"`
	FiltersRelaxed  bool                `json:"filtersRelaxed"`
	Forecast        *weather.Forecast   `json:"forecast,omitempty"`
	CandidateCount  int                 `json:"candidateCount"`
	SkippedCount    int                 `json:"skippedCount"`
}

// Recommend returns at most topN venues ordered by descending score. topN
// <= 0 selects the configured default.
func (e *Engine) Recommend(ctx context.Context, req venue.EventRequirements, topN int) ([]venue.ScoredVenue, error) {
	res, err := e.RecommendDetailed(ctx, req, topN)
	if err != nil {
		return nil, err
	}
	return res.Recommendations, nil
}

func (e *Engine) RecommendDetailed(ctx context.Context, req venue.EventRequirements, topN int) (*Result, error) {
	start := time.Now()
	res := &Result{RequestID: uuid.NewString()}
	log := e.logger.WithFields(map[string]interface{}{"requestId": res.RequestID})

	ctx, span := e.obs.Tracer().Start(ctx, "recommendation.Recommend",
		trace.WithAttributes(
			attribute.String("request.id", res.RequestID),
			attribute.Int("event.guest_count", req.GuestCount),
			attribute.String("event.type", req.EventTypeKey()),
		))
	defer span.End()
	defer func() { metrics.RecommendationDuration.Observe(time.Since(start).Seconds()) }()

	if err := req.Validate(); err != nil {
		metrics.RecommendationsTotal.WithLabelValues("invalid_input").Inc()
		span.SetStatus(codes.Error, "invalid requirements")
		return nil, err
	}

	if forecast, indoor := e.applyWeather(ctx, req, log); forecast != nil {
		res.Forecast = forecast
		if indoor {
			res.IndoorOverride = true
			req.VenueTypePreference = venue.Indoor
		}
	}

	filter := BuildFilter(req, e.cfg)
	candidates, err := e.fetch(ctx, filter)
	if err == nil && len(candidates) == 0 && hasOptionalHints(filter) {
		log.Info("no candidates under hinted filter, retrying without category and rating hints", nil)
		res.FiltersRelaxed = true
		candidates, err = e.fetch(ctx, relaxFilter(filter))
	}
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("catalog_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog fetch failed")
		log.Error("candidate fetch failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	res.CandidateCount = len(candidates)

	ranked, skipped := e.rank(ctx, req, candidates, topN, log)
	res.Recommendations = ranked
	res.SkippedCount = skipped

	outcome := "success"
	if len(ranked) == 0 {
		outcome = "empty"
	}
	metrics.RecommendationsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.Int("recommendation.candidates", len(candidates)),
		attribute.Int("recommendation.count", len(ranked)),
		attribute.Bool("recommendation.indoor_override", res.IndoorOverride),
	)

	log.Info("recommendation completed", map[string]interface{}{
		"candidates":     len(candidates),
		"skipped":        skipped,
		"returned":       len(ranked),
		"indoorOverride": res.IndoorOverride,
		"durationMs":     time.Since(start).Milliseconds(),
	})
	return res, nil
}

// Rank scores and orders an already fetched candidate list. It performs no
// I/O and applies no weather override.
func (e *Engine) Rank(ctx context.Context, req venue.EventRequirements, candidates []venue.Venue, topN int) []venue.ScoredVenue {
	ranked, _ := e.rank(ctx, req, candidates, topN, e.logger)
	return ranked
}

func (e *Engine) applyWeather(ctx context.Context, req venue.EventRequirements, log logger.Logger) (*weather.Forecast, bool) {
	if e.oracle == nil || req.Location == nil || req.Date == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.WeatherTimeout)
	defer cancel()
	ctx, span := e.obs.Tracer().Start(ctx, "weather.Forecast")
	defer span.End()

	forecast, err := e.oracle.Forecast(ctx, req.Location.Lat, req.Location.Lon, *req.Date)
	if err != nil {
		metrics.WeatherFailures.Inc()
		span.RecordError(err)
		log.Warn("forecast unavailable, keeping venue type preference", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, false
	}

	indoor := e.cfg.Policy.RequiresIndoor(forecast)
	if indoor {
		metrics.WeatherOverrides.Inc()
		log.Info("forecast forces indoor venues", map[string]interface{}{
			"condition":    forecast.Condition,
			"temperatureC": forecast.TemperatureC,
		})
	}
	span.SetAttributes(attribute.Bool("weather.indoor", indoor))
	return &forecast, indoor
}

func (e *Engine) fetch(ctx context.Context, filter venue.CandidateFilter) ([]venue.Venue, error) {
	if e.catalog == nil {
		return nil, apperrors.NewCatalogUnavailableError(errors.New("no catalog store configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.CatalogTimeout)
	defer cancel()
	ctx, span := e.obs.Tracer().Start(ctx, "catalog.FetchCandidates")
	defer span.End()

	candidates, err := e.catalog.FetchCandidates(ctx, filter)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, apperrors.ErrInvalidFilterFormat) {
			return nil, err
		}
		return nil, apperrors.NewCatalogUnavailableError(err)
	}
	span.SetAttributes(attribute.Int("catalog.candidates", len(candidates)))
	return candidates, nil
}
