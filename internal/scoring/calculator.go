// Package scoring computes the 0-100 suitability of a venue for an event as
// a fixed weighted sum of independently bounded sub-scores.
package scoring

import (
	"fmt"
	"math"

	"venue-recommender/internal/venue"
)

// Config tunes a Calculator. The zero value yields the built-in profiles
// with the ratio strategy for standard scoring and the deviation strategy
// for proximity scoring.
type Config struct {
	// CapacityStrategy is "auto", "ratio" or "deviation". "auto" keeps the
	// per-profile default.
	CapacityStrategy string
	StandardWeights  map[string]float64
	ProximityWeights map[string]float64
}

type Calculator struct {
	standard          Weights
	proximity         Weights
	standardCapacity  CapacityStrategy
	proximityCapacity CapacityStrategy
}

// Result is one scored venue.
type Result struct {
	Score     float64
	Breakdown venue.Breakdown
	Profile   ProfileName
}

func NewCalculator(cfg Config) (*Calculator, error) {
	standard, err := StandardWeights().Merge(cfg.StandardWeights)
	if err != nil {
		return nil, fmt.Errorf("standard weights: %w", err)
	}
	proximity, err := ProximityWeights().Merge(cfg.ProximityWeights)
	if err != nil {
		return nil, fmt.Errorf("proximity weights: %w", err)
	}

	c := &Calculator{
		standard:          standard.Normalized(),
		proximity:         proximity.Normalized(),
		standardCapacity:  RatioCapacity{},
		proximityCapacity: DeviationCapacity{},
	}

	if cfg.CapacityStrategy != "" && cfg.CapacityStrategy != "auto" {
		strategy, err := CapacityStrategyByName(cfg.CapacityStrategy)
		if err != nil {
			return nil, err
		}
		c.standardCapacity = strategy
		c.proximityCapacity = strategy
	}
	return c, nil
}

// NewDefaultCalculator returns a Calculator with the built-in profiles.
func NewDefaultCalculator() *Calculator {
	c, _ := NewCalculator(Config{})
	return c
}

// CapacityStrategies reports the strategy bound to each profile.
func (c *Calculator) CapacityStrategies() map[ProfileName]string {
	return map[ProfileName]string{
		ProfileStandard:  c.standardCapacity.Name(),
		ProfileProximity: c.proximityCapacity.Name(),
	}
}

// Score computes the suitability of v for req. A non-nil, finite,
// non-negative distanceKm selects the proximity profile.
func (c *Calculator) Score(v venue.Venue, req venue.EventRequirements, distanceKm *float64) Result {
	eventType := req.EventTypeKey()

	if d, ok := usableDistance(distanceKm); ok {
		capacity := c.proximityCapacity.Score(v.Capacity, req.GuestCount)
		budget := BudgetScore(v.PriceRange, req.Budget)
		rating := RatingScore(v.Rating, v.ReviewCount)
		category := CategoryScore(v.Category, SuitableCategories(eventType))
		distance := DistanceScore(d)

		w := c.proximity
		total := capacity*w[CriterionCapacity] +
			budget*w[CriterionBudget] +
			distance*w[CriterionDistance] +
			rating*w[CriterionRating] +
			category*w[CriterionCategory]

		return Result{
			Score: round2(clamp(total)),
			Breakdown: venue.Breakdown{
				Capacity: capacity,
				Budget:   budget,
				Rating:   rating,
				Category: category,
				Distance: &distance,
			},
			Profile: ProfileProximity,
		}
	}

	capacity := c.standardCapacity.Score(v.Capacity, req.GuestCount)
	budget := BudgetScore(v.PriceRange, req.Budget)
	venueType := VenueTypeScore(v.Type, req.VenueTypePreference)
	rating := RatingScore(v.Rating, v.ReviewCount)
	amenities := AmenitiesScore(v.Amenities, RequiredAmenities(eventType))
	category := CategoryScore(v.Category, SuitableCategories(eventType))

	w := c.standard
	total := capacity*w[CriterionCapacity] +
		budget*w[CriterionBudget] +
		venueType*w[CriterionVenueType] +
		rating*w[CriterionRating] +
		amenities*w[CriterionAmenities] +
		category*w[CriterionCategory]

	return Result{
		Score: round2(clamp(total)),
		Breakdown: venue.Breakdown{
			Capacity:  capacity,
			Budget:    budget,
			VenueType: &venueType,
			Rating:    rating,
			Amenities: &amenities,
			Category:  category,
		},
		Profile: ProfileStandard,
	}
}

// ScoreValue is Score without the breakdown.
func (c *Calculator) ScoreValue(v venue.Venue, req venue.EventRequirements, distanceKm *float64) float64 {
	return c.Score(v, req, distanceKm).Score
}

func usableDistance(d *float64) (float64, bool) {
	if d == nil || math.IsNaN(*d) || math.IsInf(*d, 0) || *d < 0 {
		return 0, false
	}
	return *d, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
