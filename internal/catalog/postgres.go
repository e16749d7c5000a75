package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/venue"
)

const venueColumns = `id, name, city, latitude, longitude, capacity, price_range,
		       category, venue_type, rating, review_count, amenities`

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// PostgresStore reads candidates from the venues table. amenities is a
// JSONB array and may be NULL.
type PostgresStore struct {
	db     *sql.DB
	table  string
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, table string, log logger.Logger) (*PostgresStore, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{
		db:     db,
		table:  table,
		logger: log.WithFields(map[string]interface{}{"store": "postgres"}),
	}, nil
}

func (s *PostgresStore) FetchCandidates(ctx context.Context, filter venue.CandidateFilter) ([]venue.Venue, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	query, args := s.buildQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.CatalogErrors.WithLabelValues("postgres").Inc()
		return nil, apperrors.NewQueryExecutionFailedError("fetch venue candidates", err)
	}
	defer rows.Close()

	venues, err := s.scan(rows)
	if err != nil {
		metrics.CatalogErrors.WithLabelValues("postgres").Inc()
		return nil, apperrors.NewQueryExecutionFailedError("scan venue candidates", err)
	}
	metrics.CatalogFetchDuration.WithLabelValues("postgres").Observe(time.Since(start).Seconds())

	s.logger.Debug("fetched candidates", map[string]interface{}{
		"count":     len(venues),
		"elapsedMs": time.Since(start).Milliseconds(),
	})

	// The bounding box over-selects near the corners.
	return refine(venues, filter), nil
}

// All returns every venue ordered by id. Used by catalog-sync.
func (s *PostgresStore) All(ctx context.Context) ([]venue.Venue, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY id`, venueColumns, s.table))
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list venues", err)
	}
	defer rows.Close()
	return s.scan(rows)
}

func (s *PostgresStore) buildQuery(f venue.CandidateFilter) (string, []interface{}) {
	args := []interface{}{f.MinCapacity, f.MinRating}
	conds := []string{"capacity >= $1", "rating >= $2"}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.MaxPrice > 0 {
		conds = append(conds, "price_range <= "+next(f.MaxPrice))
	}
	if f.City != "" {
		conds = append(conds, "LOWER(city) = LOWER("+next(f.City)+")")
	}
	if f.Category != "" {
		conds = append(conds, "LOWER(category) = "+next(f.Category))
	}
	if f.Near != nil && f.RadiusKm > 0 {
		minLat, maxLat, minLon, maxLon := venue.BoundingBox(*f.Near, f.RadiusKm)
		conds = append(conds,
			"latitude BETWEEN "+next(minLat)+" AND "+next(maxLat),
			"longitude BETWEEN "+next(minLon)+" AND "+next(maxLon),
		)
	}

	var order string
	switch f.SortBy {
	case venue.SortRating:
		order = "rating DESC, id ASC"
	case venue.SortPrice:
		order = "price_range ASC, id ASC"
	case venue.SortCapacity:
		order = "capacity DESC, id ASC"
	case venue.SortDistance:
		lat, lon := next(f.Near.Lat), next(f.Near.Lon)
		order = fmt.Sprintf("((latitude - %s) * (latitude - %s) + (longitude - %s) * (longitude - %s)) ASC, id ASC", lat, lat, lon, lon)
	default:
		order = "rating DESC, review_count DESC, id ASC"
	}

	limit := next(f.Limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY %s
		LIMIT %s`, venueColumns, s.table, strings.Join(conds, " AND "), order, limit)
	return query, args
}

// scan skips rows missing capacity, price or rating instead of failing the
// batch. NULL coordinates leave the venue without a location.
func (s *PostgresStore) scan(rows *sql.Rows) ([]venue.Venue, error) {
	var venues []venue.Venue
	for rows.Next() {
		var (
			v                     venue.Venue
			name, city            sql.NullString
			category, venueType   sql.NullString
			lat, lon              sql.NullFloat64
			priceRange, rating    sql.NullFloat64
			capacity, reviewCount sql.NullInt64
			amenitiesJS           []byte
		)
		if err := rows.Scan(
			&v.ID, &name, &city,
			&lat, &lon,
			&capacity, &priceRange,
			&category, &venueType,
			&rating, &reviewCount,
			&amenitiesJS,
		); err != nil {
			s.logger.Warn("skipping unreadable venue row", map[string]interface{}{
				"venueId": v.ID,
				"error":   err.Error(),
			})
			metrics.VenuesSkipped.Inc()
			continue
		}
		if !capacity.Valid || !priceRange.Valid || !rating.Valid {
			s.logger.Warn("skipping incomplete venue row", map[string]interface{}{
				"venueId":     v.ID,
				"hasCapacity": capacity.Valid,
				"hasPrice":    priceRange.Valid,
				"hasRating":   rating.Valid,
			})
			metrics.VenuesSkipped.Inc()
			continue
		}

		v.Name = name.String
		v.City = city.String
		v.Category = category.String
		v.Capacity = int(capacity.Int64)
		v.PriceRange = priceRange.Float64
		v.Rating = rating.Float64
		v.ReviewCount = int(reviewCount.Int64)
		if lat.Valid && lon.Valid {
			v.Latitude, v.Longitude = lat.Float64, lon.Float64
		}
		if t, ok := venue.ParseVenueType(venueType.String); ok {
			v.Type = t
		} else {
			v.Type = venue.VenueType(strings.ToLower(venueType.String))
		}
		if len(amenitiesJS) > 0 {
			if err := json.Unmarshal(amenitiesJS, &v.Amenities); err != nil {
				s.logger.Warn("ignoring malformed amenities", map[string]interface{}{
					"venueId": v.ID,
					"error":   err.Error(),
				})
				v.Amenities = nil
			}
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}
