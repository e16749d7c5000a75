package venue

import (
	"fmt"
	"strings"

	apperrors "venue-recommender/internal/common/errors"
)

type SortBy string

const (
	SortRelevance SortBy = "relevance"
	SortRating    SortBy = "rating"
	SortPrice     SortBy = "price"
	SortCapacity  SortBy = "capacity"
	SortDistance  SortBy = "distance"
)

func (s SortBy) Valid() bool {
	switch s {
	case SortRelevance, SortRating, SortPrice, SortCapacity, SortDistance:
		return true
	}
	return false
}

const DefaultCandidateLimit = 200

// CandidateFilter is the coarse prefilter handed to a catalog store. Zero
// values mean "no constraint" except Limit and SortBy, which get defaults.
type CandidateFilter struct {
	City        string    `json:"city,omitempty"`
	Category    string    `json:"category,omitempty"`
	MinCapacity int       `json:"minCapacity,omitempty"`
	MaxPrice    float64   `json:"maxPrice,omitempty"`
	MinRating   float64   `json:"minRating,omitempty"`
	SortBy      SortBy    `json:"sortBy,omitempty"`
	Near        *GeoPoint `json:"near,omitempty"`
	RadiusKm    float64   `json:"radiusKm,omitempty"`
	Limit       int       `json:"limit,omitempty"`
}

// Normalize applies defaults and rejects impossible combinations.
func (f CandidateFilter) Normalize() (CandidateFilter, error) {
	f.City = strings.TrimSpace(f.City)
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	if f.SortBy == "" {
		f.SortBy = SortRelevance
	}
	if !f.SortBy.Valid() {
		return f, apperrors.NewInvalidFilterFormatError(fmt.Sprintf("unknown sortBy %q", f.SortBy))
	}
	if f.MinCapacity < 0 || f.MaxPrice < 0 || f.MinRating < 0 || f.MinRating > MaxRating || f.RadiusKm < 0 {
		return f, apperrors.NewInvalidFilterFormatError("numeric bounds must be non-negative and minRating at most 5")
	}
	if f.SortBy == SortDistance && f.Near == nil {
		return f, apperrors.NewInvalidFilterFormatError("sortBy distance requires a location")
	}
	if f.Limit <= 0 {
		f.Limit = DefaultCandidateLimit
	}
	return f, nil
}

// Matches applies the scalar constraints in memory. Geo constraints are the
// caller's concern.
func (f CandidateFilter) Matches(v Venue) bool {
	if f.City != "" && !strings.EqualFold(f.City, v.City) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, v.Category) {
		return false
	}
	if v.Capacity < f.MinCapacity {
		return false
	}
	if f.MaxPrice > 0 && v.PriceRange > f.MaxPrice {
		return false
	}
	return v.Rating >= f.MinRating
}
