package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/venue"
)

const cacheKeyPrefix = "catalog:candidates:"

// CachedStore is a read-through cache in front of another Store. Redis
// failures fall through to the wrapped store.
type CachedStore struct {
	next   Store
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(next Store, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		redis:  client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"store": "cache"}),
	}
}

// CacheKey derives a stable key from the normalised filter.
func CacheKey(filter venue.CandidateFilter) (string, error) {
	data, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + hex.EncodeToString(sum[:16]), nil
}

func (c *CachedStore) FetchCandidates(ctx context.Context, filter venue.CandidateFilter) ([]venue.Venue, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	key, err := CacheKey(filter)
	if err != nil {
		return c.next.FetchCandidates(ctx, filter)
	}

	cached, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var venues []venue.Venue
		if jsonErr := json.Unmarshal([]byte(cached), &venues); jsonErr == nil {
			metrics.CacheLookups.WithLabelValues("catalog", "hit").Inc()
			return venues, nil
		}
		c.logger.Warn("discarding undecodable cache entry", map[string]interface{}{"key": key})
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("catalog", "miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("catalog", "error").Inc()
		c.logger.Warn("catalog cache read failed", map[string]interface{}{"error": err.Error()})
	}

	venues, err := c.next.FetchCandidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(venues); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("catalog cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return venues, nil
}
