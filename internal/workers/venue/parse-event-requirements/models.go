package parseeventrequirements

import "venue-recommender/internal/venue"

type Input struct {
	RawEvent map[string]interface{} `json:"rawEvent"`
}

type Output struct {
	EventRequirements venue.EventRequirements `json:"eventRequirements"`
}
