package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/venue"
)

// indexMapping keeps city and category as lowercase-normalised keywords so
// term filters match regardless of casing.
const indexMapping = `{
  "settings": {
    "analysis": {
      "normalizer": {
        "lowercase": {"type": "custom", "filter": ["lowercase"]}
      }
    }
  },
  "mappings": {
    "properties": {
      "id":           {"type": "keyword"},
      "name":         {"type": "text"},
      "city":         {"type": "keyword", "normalizer": "lowercase"},
      "category":     {"type": "keyword", "normalizer": "lowercase"},
      "venue_type":   {"type": "keyword"},
      "location":     {"type": "geo_point"},
      "capacity":     {"type": "integer"},
      "price_range":  {"type": "double"},
      "rating":       {"type": "float"},
      "review_count": {"type": "integer"},
      "amenities":    {"type": "keyword"}
    }
  }
}`

type esLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type esVenue struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	City        string     `json:"city,omitempty"`
	Category    string     `json:"category"`
	VenueType   string     `json:"venue_type"`
	Location    esLocation `json:"location"`
	Capacity    int        `json:"capacity"`
	PriceRange  float64    `json:"price_range"`
	Rating      float64    `json:"rating"`
	ReviewCount int        `json:"review_count"`
	Amenities   []string   `json:"amenities"`
}

func toESVenue(v venue.Venue) esVenue {
	return esVenue{
		ID:          v.ID,
		Name:        v.Name,
		City:        v.City,
		Category:    v.Category,
		VenueType:   string(v.Type),
		Location:    esLocation{Lat: v.Latitude, Lon: v.Longitude},
		Capacity:    v.Capacity,
		PriceRange:  v.PriceRange,
		Rating:      v.Rating,
		ReviewCount: v.ReviewCount,
		Amenities:   v.Amenities,
	}
}

func (d esVenue) toVenue() venue.Venue {
	t, ok := venue.ParseVenueType(d.VenueType)
	if !ok {
		t = venue.VenueType(strings.ToLower(d.VenueType))
	}
	return venue.Venue{
		ID:          d.ID,
		Name:        d.Name,
		City:        d.City,
		Latitude:    d.Location.Lat,
		Longitude:   d.Location.Lon,
		Capacity:    d.Capacity,
		PriceRange:  d.PriceRange,
		Category:    d.Category,
		Type:        t,
		Rating:      d.Rating,
		ReviewCount: d.ReviewCount,
		Amenities:   d.Amenities,
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchStore(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchStore {
	return &ElasticsearchStore{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"store": "elasticsearch", "index": index}),
	}
}

func (s *ElasticsearchStore) FetchCandidates(ctx context.Context, filter venue.CandidateFilter) ([]venue.Venue, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := json.Marshal(buildSearchBody(filter))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	size := filter.Limit
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		metrics.CatalogErrors.WithLabelValues("elasticsearch").Inc()
		return nil, apperrors.NewSearchQueryFailedError(s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		metrics.CatalogErrors.WithLabelValues("elasticsearch").Inc()
		return nil, apperrors.NewSearchQueryFailedError(s.index, fmt.Errorf("search returned %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		metrics.CatalogErrors.WithLabelValues("elasticsearch").Inc()
		return nil, apperrors.NewSearchQueryFailedError(s.index, fmt.Errorf("decode response: %w", err))
	}

	venues := make([]venue.Venue, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		var doc esVenue
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			s.logger.Warn("skipping undecodable search hit", map[string]interface{}{
				"docId": hit.ID,
				"error": err.Error(),
			})
			metrics.VenuesSkipped.Inc()
			continue
		}
		venues = append(venues, doc.toVenue())
	}
	metrics.CatalogFetchDuration.WithLabelValues("elasticsearch").Observe(time.Since(start).Seconds())

	s.logger.Debug("fetched candidates", map[string]interface{}{
		"count":     len(venues),
		"elapsedMs": time.Since(start).Milliseconds(),
	})
	return venues, nil
}

func buildSearchBody(f venue.CandidateFilter) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"range": map[string]interface{}{"capacity": map[string]interface{}{"gte": f.MinCapacity}}},
		map[string]interface{}{"range": map[string]interface{}{"rating": map[string]interface{}{"gte": f.MinRating}}},
	}
	if f.MaxPrice > 0 {
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{"price_range": map[string]interface{}{"lte": f.MaxPrice}},
		})
	}
	if f.City != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"city": strings.ToLower(f.City)}})
	}
	if f.Category != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"category": f.Category}})
	}
	if f.Near != nil && f.RadiusKm > 0 {
		filters = append(filters, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%gkm", f.RadiusKm),
				"location": map[string]interface{}{"lat": f.Near.Lat, "lon": f.Near.Lon},
			},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": buildSort(f),
	}
}

func buildSort(f venue.CandidateFilter) []interface{} {
	byID := map[string]interface{}{"id": "asc"}
	switch f.SortBy {
	case venue.SortRating:
		return []interface{}{map[string]interface{}{"rating": "desc"}, byID}
	case venue.SortPrice:
		return []interface{}{map[string]interface{}{"price_range": "asc"}, byID}
	case venue.SortCapacity:
		return []interface{}{map[string]interface{}{"capacity": "desc"}, byID}
	case venue.SortDistance:
		return []interface{}{
			map[string]interface{}{
				"_geo_distance": map[string]interface{}{
					"location": map[string]interface{}{"lat": f.Near.Lat, "lon": f.Near.Lon},
					"order":    "asc",
					"unit":     "km",
				},
			},
			byID,
		}
	default:
		return []interface{}{
			map[string]interface{}{"rating": "desc"},
			map[string]interface{}{"review_count": "desc"},
			byID,
		}
	}
}

// EnsureIndex creates the index with the venue mapping when it is missing.
func (s *ElasticsearchStore) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return apperrors.NewSearchQueryFailedError(s.index, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewSearchQueryFailedError(s.index, fmt.Errorf("create index returned %s", res.Status()))
	}
	return nil
}

// Index bulk-upserts venues keyed by id.
func (s *ElasticsearchStore) Index(ctx context.Context, venues []venue.Venue) error {
	if len(venues) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, v := range venues {
		meta := map[string]interface{}{"index": map[string]interface{}{"_index": s.index, "_id": v.ID}}
		if err := enc.Encode(meta); err != nil {
			return apperrors.NewInternalError(err)
		}
		if err := enc.Encode(toESVenue(v)); err != nil {
			return apperrors.NewInternalError(err)
		}
	}

	res, err := s.client.Bulk(bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewSearchQueryFailedError(s.index, fmt.Errorf("bulk returned %s", res.Status()))
	}

	var summary struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&summary); err != nil {
		return apperrors.NewSearchQueryFailedError(s.index, fmt.Errorf("decode bulk response: %w", err))
	}
	if summary.Errors {
		return apperrors.NewSearchQueryFailedError(s.index, fmt.Errorf("bulk request reported item failures"))
	}
	s.logger.Info("indexed venues", map[string]interface{}{"count": len(venues)})
	return nil
}
