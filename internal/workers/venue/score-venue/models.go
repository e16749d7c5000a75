package scorevenue

import "venue-recommender/internal/venue"

type Input struct {
	Venue             venue.Venue             `json:"venue"`
	EventRequirements venue.EventRequirements `json:"eventRequirements"`
	DistanceKm        *float64                `json:"distanceKm,omitempty"`
}

type Output struct {
	SuitabilityScore float64         `json:"suitabilityScore"`
	ScoreBreakdown   venue.Breakdown `json:"scoreBreakdown"`
	ScoringProfile   string          `json:"scoringProfile"`
	DistanceKm       *float64        `json:"distanceKm,omitempty"`
}
