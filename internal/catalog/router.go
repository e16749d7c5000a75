package catalog

import (
	"context"

	"venue-recommender/internal/venue"
)

// Router sends radius queries to the geo index and everything else to the
// primary store.
type Router struct {
	primary Store
	geo     Store
}

// NewRouter returns a Router. geo may be nil.
func NewRouter(primary, geo Store) *Router {
	return &Router{primary: primary, geo: geo}
}

func (r *Router) FetchCandidates(ctx context.Context, filter venue.CandidateFilter) ([]venue.Venue, error) {
	if r.geo != nil && filter.Near != nil && filter.RadiusKm > 0 {
		return r.geo.FetchCandidates(ctx, filter)
	}
	return r.primary.FetchCandidates(ctx, filter)
}
