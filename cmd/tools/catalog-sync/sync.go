package main

import (
	"context"
	"fmt"
	"sort"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/venue"
)

type syncReport struct {
	Read    int
	Skipped int
	Indexed map[string]int
}

// syncVenues drops invalid records and writes the rest to every indexer in
// batches. Targets run in name order so failures are reproducible.
func syncVenues(ctx context.Context, venues []venue.Venue, indexers map[string]catalog.Indexer, batchSize int, log logger.Logger) (syncReport, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	report := syncReport{Read: len(venues), Indexed: make(map[string]int, len(indexers))}

	valid := make([]venue.Venue, 0, len(venues))
	for _, v := range venues {
		if err := v.Validate(); err != nil {
			report.Skipped++
			log.Warn("skipping invalid venue", map[string]interface{}{
				"venueId": v.ID,
				"error":   err.Error(),
			})
			continue
		}
		valid = append(valid, v)
	}

	names := make([]string, 0, len(indexers))
	for name := range indexers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		idx := indexers[name]
		for start := 0; start < len(valid); start += batchSize {
			end := start + batchSize
			if end > len(valid) {
				end = len(valid)
			}
			if err := idx.Index(ctx, valid[start:end]); err != nil {
				return report, fmt.Errorf("%s: batch starting at %d: %w", name, start, err)
			}
			report.Indexed[name] += end - start
		}
		log.Info("target synced", map[string]interface{}{
			"target": name,
			"count":  report.Indexed[name],
		})
	}

	return report, nil
}
