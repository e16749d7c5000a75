// cmd/tools/catalog-sync/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/common/config"
	"venue-recommender/internal/common/database"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/venue"
)

func main() {
	source := flag.String("source", "seed", "Where to read venues from (postgres, seed)")
	seedPath := flag.String("seed", "", "Seed file path, defaults to catalog.seed_file")
	targets := flag.String("targets", "elasticsearch,geo", "Comma separated indexes to fill (elasticsearch, geo)")
	batchSize := flag.Int("batch", 500, "Venues per index request")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall sync deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	venues, err := loadVenues(ctx, cfg, *source, *seedPath, log)
	if err != nil {
		zapLog.Fatal("failed to load venues", zap.Error(err))
	}

	indexers, err := openIndexers(ctx, cfg, strings.Split(*targets, ","), log)
	if err != nil {
		zapLog.Fatal("failed to open indexes", zap.Error(err))
	}

	report, err := syncVenues(ctx, venues, indexers, *batchSize, log)
	if err != nil {
		zapLog.Fatal("catalog sync failed", zap.Error(err))
	}

	zapLog.Info("catalog sync finished",
		zap.Int("read", report.Read),
		zap.Int("skipped", report.Skipped),
		zap.Any("indexed", report.Indexed),
	)
}

func loadVenues(ctx context.Context, cfg *config.Config, source, seedPath string, log logger.Logger) ([]venue.Venue, error) {
	switch source {
	case "seed":
		if seedPath == "" {
			seedPath = cfg.Catalog.SeedFile
		}
		if seedPath == "" {
			return nil, fmt.Errorf("no seed file given and catalog.seed_file is empty")
		}
		return catalog.LoadSeedFile(seedPath)
	case "postgres":
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		defer pg.Close()
		store, err := catalog.NewPostgresStore(pg.DB, cfg.Catalog.Table, log)
		if err != nil {
			return nil, err
		}
		return store.All(ctx)
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

func openIndexers(ctx context.Context, cfg *config.Config, targets []string, log logger.Logger) (map[string]catalog.Indexer, error) {
	out := make(map[string]catalog.Indexer, len(targets))
	for _, target := range targets {
		switch strings.TrimSpace(target) {
		case "":
		case "elasticsearch":
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return nil, err
			}
			store := catalog.NewElasticsearchStore(es.Client, cfg.Catalog.Index, log)
			if err := store.EnsureIndex(ctx); err != nil {
				return nil, err
			}
			out["elasticsearch"] = store
		case "geo":
			out["geo"] = catalog.NewGeoIndex(database.NewGeoRedis(cfg.Database.Redis), cfg.Catalog.GeoKey, log)
		default:
			return nil, fmt.Errorf("unknown target %q", target)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no sync targets selected")
	}
	return out, nil
}
