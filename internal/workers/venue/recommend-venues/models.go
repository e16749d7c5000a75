package recommendvenues

import "venue-recommender/internal/venue"

type Input struct {
	EventRequirements venue.EventRequirements `json:"eventRequirements"`
	TopN              int                     `json:"topN,omitempty"`
}

type Output struct {
	Recommendations     []venue.ScoredVenue `json:"recommendations"`
	RecommendationCount int                 `json:"recommendationCount"`
	IndoorOverride      bool                `json:"indoorOverride"`
	FiltersRelaxed      bool                `json:"filtersRelaxed"`
	RequestID           string              `json:"requestId"`
}
