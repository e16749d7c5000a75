// Package venue holds the catalog record and event-requirement types shared
// by the scorer, the recommendation engine, the catalog stores and the
// job workers.
package venue

import (
	"fmt"
	"math"
	"strings"

	apperrors "venue-recommender/internal/common/errors"
)

type VenueType string

const (
	Indoor  VenueType = "indoor"
	Outdoor VenueType = "outdoor"
)

// ParseVenueType accepts any casing and surrounding whitespace.
func ParseVenueType(s string) (VenueType, bool) {
	switch VenueType(strings.ToLower(strings.TrimSpace(s))) {
	case Indoor:
		return Indoor, true
	case Outdoor:
		return Outdoor, true
	default:
		return "", false
	}
}

const MaxRating = 5.0

// Venue is an immutable snapshot of a catalog record as far as scoring is
// concerned. A nil Amenities slice means the record carries no amenities list.
type Venue struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	City        string    `json:"city,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Capacity    int       `json:"capacity"`
	PriceRange  float64   `json:"priceRange"`
	Category    string    `json:"category"`
	Type        VenueType `json:"type"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	Amenities   []string  `json:"amenities"`
}

// Validate reports records that cannot be scored meaningfully.
func (v Venue) Validate() error {
	var problems []string
	if strings.TrimSpace(v.ID) == "" {
		problems = append(problems, "id is empty")
	}
	if v.Capacity < 0 {
		problems = append(problems, fmt.Sprintf("capacity %d is negative", v.Capacity))
	}
	if math.IsNaN(v.PriceRange) || math.IsInf(v.PriceRange, 0) || v.PriceRange < 0 {
		problems = append(problems, fmt.Sprintf("priceRange %v is invalid", v.PriceRange))
	}
	if math.IsNaN(v.Rating) || v.Rating < 0 || v.Rating > MaxRating {
		problems = append(problems, fmt.Sprintf("rating %v outside [0,5]", v.Rating))
	}
	if v.ReviewCount < 0 {
		problems = append(problems, fmt.Sprintf("reviewCount %d is negative", v.ReviewCount))
	}
	if !validCoordinate(v.Latitude, 90) || !validCoordinate(v.Longitude, 180) {
		problems = append(problems, "coordinates out of range")
	}

	if len(problems) > 0 {
		return apperrors.NewInvalidVenueDataError(v.ID, strings.Join(problems, "; "))
	}
	return nil
}

// HasCoordinates treats (0,0) as unset.
func (v Venue) HasCoordinates() bool {
	return v.Latitude != 0 || v.Longitude != 0
}

func validCoordinate(c, limit float64) bool {
	return !math.IsNaN(c) && !math.IsInf(c, 0) && c >= -limit && c <= limit
}

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// ScoredVenue pairs a venue with its suitability score for one request.
type ScoredVenue struct {
	Venue      Venue     `json:"venue"`
	Score      float64   `json:"score"`
	Breakdown  Breakdown `json:"breakdown"`
	Profile    string    `json:"profile"`
	DistanceKm *float64  `json:"distanceKm,omitempty"`
}

// Breakdown holds the per-criterion sub-scores, each in [0,100]. Criteria
// inactive in the chosen profile are nil.
type Breakdown struct {
	Capacity  float64  `json:"capacity"`
	Budget    float64  `json:"budget"`
	VenueType *float64 `json:"venueType,omitempty"`
	Rating    float64  `json:"rating"`
	Amenities *float64 `json:"amenities,omitempty"`
	Category  float64  `json:"category"`
	Distance  *float64 `json:"distance,omitempty"`
}

// Venues strips scores from a ranked list.
func Venues(scored []ScoredVenue) []Venue {
	out := make([]Venue, len(scored))
	for i, s := range scored {
		out[i] = s.Venue
	}
	return out
}
