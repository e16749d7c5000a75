package recommendation

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/venue"
)

type scoredSlot struct {
	scored venue.ScoredVenue
	ok     bool
}

func (e *Engine) rank(ctx context.Context, req venue.EventRequirements, candidates []venue.Venue, topN int, log logger.Logger) ([]venue.ScoredVenue, int) {
	if topN <= 0 {
		topN = e.cfg.DefaultTopN
	}
	if len(candidates) == 0 {
		return []venue.ScoredVenue{}, 0
	}

	slots := make([]scoredSlot, len(candidates))
	if len(candidates) >= e.cfg.ParallelThreshold {
		var g errgroup.Group
		g.SetLimit(e.cfg.MaxWorkers)
		for i := range candidates {
			i := i
			g.Go(func() error {
				slots[i] = e.scoreOne(ctx, req, candidates[i], log)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range candidates {
			slots[i] = e.scoreOne(ctx, req, candidates[i], log)
		}
	}

	ranked := make([]venue.ScoredVenue, 0, len(slots))
	skipped := 0
	for _, s := range slots {
		if !s.ok {
			skipped++
			continue
		}
		ranked = append(ranked, s.scored)
	}

	SortScored(ranked)
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, skipped
}

func (e *Engine) scoreOne(ctx context.Context, req venue.EventRequirements, v venue.Venue, log logger.Logger) scoredSlot {
	if err := v.Validate(); err != nil {
		metrics.VenuesSkipped.Inc()
		log.Warn("skipping invalid venue", map[string]interface{}{
			"venueId": v.ID,
			"error":   err.Error(),
		})
		return scoredSlot{}
	}

	var distance *float64
	if req.Location != nil && v.HasCoordinates() {
		d := venue.DistanceKm(*req.Location, v.Point())
		distance = &d
	}

	res := e.calc.Score(v, req, distance)
	metrics.VenuesScored.WithLabelValues(string(res.Profile)).Inc()
	e.obs.RecordScore(ctx, string(res.Profile), res.Score)

	return scoredSlot{
		scored: venue.ScoredVenue{
			Venue:      v,
			Score:      res.Score,
			Breakdown:  res.Breakdown,
			Profile:    string(res.Profile),
			DistanceKm: distance,
		},
		ok: true,
	}
}

// SortScored orders by descending score, ties by ascending venue id.
func SortScored(scored []venue.ScoredVenue) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Venue.ID < scored[j].Venue.ID
	})
}
