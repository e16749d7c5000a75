package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/venue"
)

// GeoIndex keeps venue coordinates in a redis GEO set and the full record
// as JSON under "<geoKey>:<id>". It only answers radius queries.
type GeoIndex struct {
	client *redis.Client
	geoKey string
	logger logger.Logger
}

func NewGeoIndex(client *redis.Client, geoKey string, log logger.Logger) *GeoIndex {
	return &GeoIndex{
		client: client,
		geoKey: geoKey,
		logger: log.WithFields(map[string]interface{}{"store": "redis-geo", "geoKey": geoKey}),
	}
}

func (g *GeoIndex) memberKey(id string) string {
	return fmt.Sprintf("%s:%s", g.geoKey, id)
}

// Index adds venues with coordinates. Venues at (0,0) are skipped.
func (g *GeoIndex) Index(ctx context.Context, venues []venue.Venue) error {
	pipe := g.client.TxPipeline()
	added := 0
	for _, v := range venues {
		if !v.HasCoordinates() {
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		pipe.GeoAdd(ctx, g.geoKey, &redis.GeoLocation{
			Name:      v.ID,
			Latitude:  v.Latitude,
			Longitude: v.Longitude,
		})
		pipe.Set(ctx, g.memberKey(v.ID), data, 0)
		added++
	}
	if added == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewCacheUnavailableError(err)
	}
	g.logger.Info("indexed venue locations", map[string]interface{}{"count": added})
	return nil
}

func (g *GeoIndex) FetchCandidates(ctx context.Context, filter venue.CandidateFilter) ([]venue.Venue, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	if filter.Near == nil || filter.RadiusKm <= 0 {
		return nil, apperrors.NewInvalidFilterFormatError("geo index requires a location and a positive radius")
	}

	start := time.Now()
	locations, err := g.client.GeoRadius(ctx, g.geoKey, filter.Near.Lon, filter.Near.Lat, &redis.GeoRadiusQuery{
		Radius: filter.RadiusKm,
		Unit:   "km",
		Sort:   "ASC",
	}).Result()
	if err != nil {
		metrics.CatalogErrors.WithLabelValues("redis-geo").Inc()
		return nil, apperrors.NewCacheUnavailableError(err)
	}
	if len(locations) == 0 {
		return []venue.Venue{}, nil
	}

	keys := make([]string, len(locations))
	for i, loc := range locations {
		keys[i] = g.memberKey(loc.Name)
	}
	values, err := g.client.MGet(ctx, keys...).Result()
	if err != nil {
		metrics.CatalogErrors.WithLabelValues("redis-geo").Inc()
		return nil, apperrors.NewCacheUnavailableError(err)
	}

	venues := make([]venue.Venue, 0, len(values))
	for i, raw := range values {
		s, ok := raw.(string)
		if !ok {
			g.logger.Warn("geo member has no record", map[string]interface{}{"venueId": locations[i].Name})
			continue
		}
		var v venue.Venue
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			g.logger.Warn("skipping undecodable geo record", map[string]interface{}{
				"venueId": locations[i].Name,
				"error":   err.Error(),
			})
			continue
		}
		venues = append(venues, v)
	}
	metrics.CatalogFetchDuration.WithLabelValues("redis-geo").Observe(time.Since(start).Seconds())

	return refine(venues, filter), nil
}
