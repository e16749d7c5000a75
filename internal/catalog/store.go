// Package catalog implements the venue catalog stores the recommendation
// engine pulls candidates from: postgres, elasticsearch, a redis geo index,
// an in-memory seed store, plus a read-through cache and a router.
package catalog

import (
	"context"
	"sort"

	"venue-recommender/internal/venue"
)

// Store returns venues matching the coarse filter. Implementations honour
// filter.SortBy and filter.Limit and never return more than Limit records.
type Store interface {
	FetchCandidates(ctx context.Context, filter venue.CandidateFilter) ([]venue.Venue, error)
}

// Indexer accepts full venue records for a secondary index.
type Indexer interface {
	Index(ctx context.Context, venues []venue.Venue) error
}

// refine applies the constraints a backend could only approximate: exact
// radius, scalar predicates, ordering and the limit.
func refine(venues []venue.Venue, filter venue.CandidateFilter) []venue.Venue {
	out := make([]venue.Venue, 0, len(venues))
	for _, v := range venues {
		if !filter.Matches(v) {
			continue
		}
		if filter.Near != nil && filter.RadiusKm > 0 {
			if !v.HasCoordinates() || venue.DistanceKm(*filter.Near, v.Point()) > filter.RadiusKm {
				continue
			}
		}
		out = append(out, v)
	}
	sortVenues(out, filter)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func sortVenues(vs []venue.Venue, filter venue.CandidateFilter) {
	less := func(a, b venue.Venue) (bool, bool) { return false, false }

	switch filter.SortBy {
	case venue.SortRating:
		less = func(a, b venue.Venue) (bool, bool) {
			return a.Rating > b.Rating, a.Rating != b.Rating
		}
	case venue.SortPrice:
		less = func(a, b venue.Venue) (bool, bool) {
			return a.PriceRange < b.PriceRange, a.PriceRange != b.PriceRange
		}
	case venue.SortCapacity:
		less = func(a, b venue.Venue) (bool, bool) {
			return a.Capacity > b.Capacity, a.Capacity != b.Capacity
		}
	case venue.SortDistance:
		if filter.Near != nil {
			origin := *filter.Near
			less = func(a, b venue.Venue) (bool, bool) {
				da, db := venue.DistanceKm(origin, a.Point()), venue.DistanceKm(origin, b.Point())
				return da < db, da != db
			}
		}
	default:
		less = func(a, b venue.Venue) (bool, bool) {
			if a.Rating != b.Rating {
				return a.Rating > b.Rating, true
			}
			return a.ReviewCount > b.ReviewCount, a.ReviewCount != b.ReviewCount
		}
	}

	sort.SliceStable(vs, func(i, j int) bool {
		if l, decided := less(vs[i], vs[j]); decided {
			return l
		}
		return vs[i].ID < vs[j].ID
	})
}
