package recommendation

import (
	"math"

	"venue-recommender/internal/venue"
)

// BuildFilter derives the coarse catalog prefilter: a capacity floor at a
// fraction of the guest count and a price ceiling above the budget.
func BuildFilter(req venue.EventRequirements, cfg Config) venue.CandidateFilter {
	cfg = cfg.withDefaults()

	f := venue.CandidateFilter{
		City:        req.City,
		Category:    req.Category,
		MinCapacity: int(math.Ceil(float64(req.GuestCount) * cfg.CapacityFloorRatio)),
		MinRating:   req.MinRating,
		SortBy:      req.SortBy,
		RadiusKm:    req.RadiusKm,
		Limit:       cfg.CandidateLimit,
	}
	if req.Budget.HasCeiling() {
		f.MaxPrice = req.Budget.Max * (1 + cfg.PriceCeilingSlack)
	}
	if req.Location != nil {
		near := *req.Location
		f.Near = &near
	}
	return f
}

func hasOptionalHints(f venue.CandidateFilter) bool {
	return f.Category != "" || f.MinRating > 0
}

// relaxFilter drops the category and rating hints but keeps the hard
// capacity, price and location bounds.
func relaxFilter(f venue.CandidateFilter) venue.CandidateFilter {
	f.Category = ""
	f.MinRating = 0
	return f
}
