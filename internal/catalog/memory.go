package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"venue-recommender/internal/venue"
)

// MemoryStore serves a fixed venue list. It backs local runs from a seed
// file and doubles as the source for catalog-sync.
type MemoryStore struct {
	mu     sync.RWMutex
	venues []venue.Venue
}

func NewMemoryStore(venues []venue.Venue) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(venues)
	return s
}

// LoadSeedFile reads a JSON array of venues.
func LoadSeedFile(path string) ([]venue.Venue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var venues []venue.Venue
	if err := json.Unmarshal(data, &venues); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return venues, nil
}

func (s *MemoryStore) Replace(venues []venue.Venue) {
	cp := make([]venue.Venue, len(venues))
	copy(cp, venues)

	s.mu.Lock()
	s.venues = cp
	s.mu.Unlock()
}

func (s *MemoryStore) All() []venue.Venue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]venue.Venue, len(s.venues))
	copy(cp, s.venues)
	return cp
}

func (s *MemoryStore) FetchCandidates(ctx context.Context, filter venue.CandidateFilter) ([]venue.Venue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	return refine(s.All(), filter), nil
}

// Index appends or replaces venues by id.
func (s *MemoryStore) Index(ctx context.Context, venues []venue.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := make(map[string]int, len(s.venues))
	for i, v := range s.venues {
		pos[v.ID] = i
	}
	for _, v := range venues {
		if i, ok := pos[v.ID]; ok {
			s.venues[i] = v
			continue
		}
		pos[v.ID] = len(s.venues)
		s.venues = append(s.venues, v)
	}
	return nil
}
