package main

import (
	"context"
	"fmt"
	"time"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/common/config"
	"venue-recommender/internal/common/database"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/recommendation"
	"venue-recommender/internal/weather"
)

type healthCheck func(ctx context.Context) error

// dependencies holds the connections opened at startup. Only the ones the
// configuration needs are set.
type dependencies struct {
	postgres *database.PostgresClient
	es       *database.ElasticsearchClient
	redis    *database.RedisClient
	geo      *redisv8.Client
	checks   map[string]healthCheck
}

func (d *dependencies) Close() {
	if d.postgres != nil {
		d.postgres.Close()
	}
	if d.redis != nil {
		d.redis.Close()
	}
	if d.geo != nil {
		d.geo.Close()
	}
}

func connectDependencies(ctx context.Context, cfg *config.Config, log *zap.Logger) (*dependencies, error) {
	deps := &dependencies{checks: map[string]healthCheck{}}

	if cfg.Catalog.Backend == config.BackendPostgres {
		err := retryWithBackoff(func() error {
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			deps.postgres = pg
			return nil
		}, 5, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		deps.checks["postgres"] = deps.postgres.Ping
		log.Info("connected to PostgreSQL", zap.String("host", cfg.Database.Postgres.Host))
	}

	if cfg.Catalog.Backend == config.BackendElasticsearch {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		err = retryWithBackoff(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return es.Ping(pingCtx)
		}, 5, 2*time.Second, log, "Elasticsearch ping")
		if err != nil {
			return nil, err
		}
		deps.es = es
		deps.checks["elasticsearch"] = es.Ping
		log.Info("connected to Elasticsearch", zap.Strings("addresses", cfg.Database.Elasticsearch.Addresses))
	}

	if config.NeedsRedis(cfg) {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		err = retryWithBackoff(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return rdb.Ping(pingCtx)
		}, 5, time.Second, log, "Redis ping")
		if err != nil {
			rdb.Close()
			return nil, err
		}
		deps.redis = rdb
		deps.checks["redis"] = rdb.Ping
		log.Info("connected to Redis", zap.String("address", cfg.Database.Redis.Address))

		if cfg.Catalog.GeoEnabled {
			deps.geo = database.NewGeoRedis(cfg.Database.Redis)
		}
	}

	return deps, nil
}

// buildCatalog assembles the store chain: backend, then the optional geo
// router, then the optional redis cache in front of both.
func buildCatalog(ctx context.Context, cfg *config.Config, deps *dependencies, log logger.Logger) (recommendation.CatalogStore, error) {
	var (
		primary catalog.Store
		mem     *catalog.MemoryStore
	)

	switch cfg.Catalog.Backend {
	case config.BackendPostgres:
		pg, err := catalog.NewPostgresStore(deps.postgres.DB, cfg.Catalog.Table, log)
		if err != nil {
			return nil, err
		}
		primary = pg
	case config.BackendElasticsearch:
		es := catalog.NewElasticsearchStore(deps.es.Client, cfg.Catalog.Index, log)
		if err := es.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("ensure index %s: %w", cfg.Catalog.Index, err)
		}
		primary = es
	case config.BackendMemory:
		venues, err := catalog.LoadSeedFile(cfg.Catalog.SeedFile)
		if err != nil {
			return nil, err
		}
		mem = catalog.NewMemoryStore(venues)
		primary = mem
		log.Info("loaded venue seed file", map[string]interface{}{
			"path":   cfg.Catalog.SeedFile,
			"venues": len(venues),
		})
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", cfg.Catalog.Backend)
	}

	store := primary
	if deps.geo != nil {
		geo := catalog.NewGeoIndex(deps.geo, cfg.Catalog.GeoKey, log)
		if mem != nil {
			if err := geo.Index(ctx, mem.All()); err != nil {
				return nil, fmt.Errorf("index seed venues into geo set: %w", err)
			}
		}
		store = catalog.NewRouter(primary, geo)
	}

	if cfg.Catalog.CacheEnabled && deps.redis != nil {
		store = catalog.NewCachedStore(store, deps.redis.Client, time.Duration(cfg.Catalog.CacheTTL)*time.Second, log)
	}

	return store, nil
}

// buildWeatherOracle returns nil when forecasts are disabled, which turns the
// indoor override off.
func buildWeatherOracle(cfg *config.Config, deps *dependencies, log logger.Logger) (recommendation.WeatherOracle, error) {
	if !cfg.Weather.Enabled {
		return nil, nil
	}

	wc := weather.Config{
		BaseURL:          cfg.Weather.BaseURL,
		APIKey:           cfg.Weather.APIKey,
		Timeout:          config.GetDuration(cfg.Weather.Timeout),
		CacheTTL:         time.Duration(cfg.Weather.CacheTTL) * time.Second,
		RateLimit:        cfg.Weather.RateLimit,
		RateBurst:        cfg.Weather.RateBurst,
		MaxRetries:       cfg.Weather.MaxRetries,
		BreakerThreshold: cfg.Weather.BreakerThreshold,
		BreakerTimeout:   config.GetDuration(cfg.Weather.BreakerTimeout),
	}

	var cache *redis.Client
	if deps.redis != nil {
		cache = deps.redis.Client
	}
	client, err := weather.NewClient(wc, cache, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}
