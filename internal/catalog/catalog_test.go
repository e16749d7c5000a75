package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/venue"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

// Around central Bangalore unless noted.
func fixtureVenues() []venue.Venue {
	return []venue.Venue{
		{ID: "v1", Name: "Palace Grounds", City: "Bangalore", Latitude: 12.9980, Longitude: 77.5920, Capacity: 2000, PriceRange: 300000, Category: "open_ground", Type: venue.Outdoor, Rating: 4.2, ReviewCount: 900, Amenities: []string{"parking"}},
		{ID: "v2", Name: "Leela Ballroom", City: "Bangalore", Latitude: 12.9606, Longitude: 77.6484, Capacity: 500, PriceRange: 120000, Category: "hotel", Type: venue.Indoor, Rating: 4.8, ReviewCount: 300, Amenities: []string{"catering", "ac", "parking", "stage"}},
		{ID: "v3", Name: "Community Hall", City: "bangalore", Latitude: 12.9352, Longitude: 77.6245, Capacity: 300, PriceRange: 40000, Category: "community_center", Type: venue.Indoor, Rating: 3.9, ReviewCount: 40},
		{ID: "v4", Name: "Mysore Convention", City: "Mysore", Latitude: 12.2958, Longitude: 76.6394, Capacity: 800, PriceRange: 90000, Category: "conference_center", Type: venue.Indoor, Rating: 4.8, ReviewCount: 300},
		{ID: "v5", Name: "Rooftop", City: "Bangalore", Latitude: 12.9716, Longitude: 77.5946, Capacity: 120, PriceRange: 60000, Category: "restaurant", Type: venue.Outdoor, Rating: 4.5, ReviewCount: 1200, Amenities: []string{"bar"}},
	}
}

func ids(vs []venue.Venue) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

type countingStore struct {
	calls   int32
	venues  []venue.Venue
	err     error
	lastArg venue.CandidateFilter
}

func (s *countingStore) FetchCandidates(ctx context.Context, filter venue.CandidateFilter) ([]venue.Venue, error) {
	atomic.AddInt32(&s.calls, 1)
	s.lastArg = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.venues, nil
}

// ==========================
// MemoryStore
// ==========================

func TestMemoryStore_FetchCandidates(t *testing.T) {
	store := NewMemoryStore(fixtureVenues())
	center := venue.GeoPoint{Lat: 12.9716, Lon: 77.5946}

	tests := []struct {
		name     string
		filter   venue.CandidateFilter
		expected []string
	}{
		{
			name:     "relevance orders by rating then reviews then id",
			filter:   venue.CandidateFilter{},
			expected: []string{"v2", "v4", "v5", "v1", "v3"},
		},
		{
			name:     "city is case-insensitive",
			filter:   venue.CandidateFilter{City: "BANGALORE", SortBy: venue.SortPrice},
			expected: []string{"v3", "v5", "v2", "v1"},
		},
		{
			name:     "capacity and price bounds",
			filter:   venue.CandidateFilter{MinCapacity: 250, MaxPrice: 150000, SortBy: venue.SortCapacity},
			expected: []string{"v4", "v2", "v3"},
		},
		{
			name:     "radius and distance sort",
			filter:   venue.CandidateFilter{Near: &center, RadiusKm: 8, SortBy: venue.SortDistance},
			expected: []string{"v5", "v1", "v3", "v2"},
		},
		{
			name:     "limit",
			filter:   venue.CandidateFilter{SortBy: venue.SortRating, Limit: 2},
			expected: []string{"v2", "v4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.FetchCandidates(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(got))
		})
	}
}

func TestMemoryStore_RejectsInvalidFilter(t *testing.T) {
	store := NewMemoryStore(fixtureVenues())

	_, err := store.FetchCandidates(context.Background(), venue.CandidateFilter{SortBy: venue.SortDistance})
	assert.Error(t, err)
}

func TestMemoryStore_IndexUpserts(t *testing.T) {
	store := NewMemoryStore(fixtureVenues()[:2])

	updated := fixtureVenues()[0]
	updated.Capacity = 10
	require.NoError(t, store.Index(context.Background(), []venue.Venue{updated, fixtureVenues()[2]}))

	all := store.All()
	require.Len(t, all, 3)
	assert.Equal(t, 10, all[0].Capacity)
}

func TestLoadSeedFile_Missing(t *testing.T) {
	_, err := LoadSeedFile("does-not-exist.json")
	assert.Error(t, err)
}

// ==========================
// Router
// ==========================

func TestRouter_FetchCandidates(t *testing.T) {
	primary := &countingStore{venues: fixtureVenues()[:1]}
	geo := &countingStore{venues: fixtureVenues()[1:2]}
	router := NewRouter(primary, geo)
	center := venue.GeoPoint{Lat: 12.97, Lon: 77.59}

	got, err := router.FetchCandidates(context.Background(), venue.CandidateFilter{Near: &center, RadiusKm: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, ids(got))

	got, err = router.FetchCandidates(context.Background(), venue.CandidateFilter{Near: &center})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, ids(got))

	assert.Equal(t, int32(1), primary.calls)
	assert.Equal(t, int32(1), geo.calls)
}

func TestRouter_WithoutGeoUsesPrimary(t *testing.T) {
	primary := &countingStore{err: errors.New("down")}
	router := NewRouter(primary, nil)
	center := venue.GeoPoint{Lat: 12.97, Lon: 77.59}

	_, err := router.FetchCandidates(context.Background(), venue.CandidateFilter{Near: &center, RadiusKm: 5})
	assert.EqualError(t, err, "down")
}
