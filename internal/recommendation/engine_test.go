package recommendation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/scoring"
	"venue-recommender/internal/venue"
	"venue-recommender/internal/weather"
)

// ==========================
// Mock Collaborators
// ==========================

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) FetchCandidates(ctx context.Context, f venue.CandidateFilter) ([]venue.Venue, error) {
	args := m.Called(ctx, f)
	if v := args.Get(0); v != nil {
		return v.([]venue.Venue), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Forecast(ctx context.Context, lat, lon float64, date time.Time) (weather.Forecast, error) {
	args := m.Called(ctx, lat, lon, date)
	return args.Get(0).(weather.Forecast), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

func newTestEngine(t *testing.T, catalog CatalogStore, oracle WeatherOracle, cfg Config) *Engine {
	t.Helper()
	return NewEngine(scoring.NewDefaultCalculator(), catalog, oracle, cfg, logger.NewTestLogger(t), nil)
}

func banquetHall(id string) venue.Venue {
	return venue.Venue{
		ID:          id,
		Capacity:    500,
		PriceRange:  100000,
		Category:    "banquet_hall",
		Type:        venue.Indoor,
		Rating:      4.5,
		ReviewCount: 50,
		Amenities:   []string{"catering", "stage", "parking", "ac"},
	}
}

func weddingRequirements() venue.EventRequirements {
	return venue.EventRequirements{
		GuestCount:          400,
		Budget:              venue.Bounded(50000, 150000),
		EventType:           "wedding",
		VenueTypePreference: venue.Indoor,
	}
}

func eventDay() *time.Time {
	d := time.Date(2026, 12, 5, 0, 0, 0, 0, time.UTC)
	return &d
}

func ids(scored []venue.ScoredVenue) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Venue.ID
	}
	return out
}

func randomVenues(n int, seed int64) []venue.Venue {
	rng := rand.New(rand.NewSource(seed))
	categories := []string{"banquet_hall", "hotel", "stadium", "conference_center"}
	out := make([]venue.Venue, n)
	for i := range out {
		out[i] = venue.Venue{
			ID:          fmt.Sprintf("venue-%03d", i),
			Capacity:    50 + rng.Intn(1000),
			PriceRange:  float64(10000 + rng.Intn(300000)),
			Category:    categories[rng.Intn(len(categories))],
			Type:        []venue.VenueType{venue.Indoor, venue.Outdoor}[rng.Intn(2)],
			Rating:      float64(rng.Intn(51)) / 10,
			ReviewCount: rng.Intn(2000),
			Amenities:   []string{"catering", "parking"},
		}
	}
	return out
}

// ==========================
// Recommend
// ==========================

func TestRecommend_WeddingScenario(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return([]venue.Venue{banquetHall("banquet-1")}, nil)

	engine := newTestEngine(t, catalog, nil, Config{})
	got, err := engine.Recommend(context.Background(), weddingRequirements(), 5)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 100.0, got[0].Score, 0.01)
	assert.Equal(t, "standard", got[0].Profile)
	assert.Nil(t, got[0].DistanceKm)
	catalog.AssertExpectations(t)
}

func TestRecommend_PassesDerivedFilterToCatalog(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return([]venue.Venue{}, nil)

	req := weddingRequirements()
	req.GuestCount = 401
	req.City = "Bangalore"
	req.Location = &venue.GeoPoint{Lat: 12.97, Lon: 77.59}
	req.RadiusKm = 15

	engine := newTestEngine(t, catalog, nil, Config{CandidateLimit: 50})
	_, err := engine.Recommend(context.Background(), req, 5)
	require.NoError(t, err)

	f := catalog.Calls[0].Arguments.Get(1).(venue.CandidateFilter)
	assert.Equal(t, 201, f.MinCapacity)
	assert.InDelta(t, 225000.0, f.MaxPrice, 1e-9)
	assert.Equal(t, "Bangalore", f.City)
	assert.Equal(t, 15.0, f.RadiusKm)
	assert.Equal(t, 50, f.Limit)
	require.NotNil(t, f.Near)
	assert.Equal(t, 12.97, f.Near.Lat)
}

func TestRecommend_LengthAndOrder(t *testing.T) {
	venues := randomVenues(25, 7)
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return(venues, nil)
	engine := newTestEngine(t, catalog, nil, Config{})

	tests := []struct {
		name     string
		topN     int
		expected int
	}{
		{"explicit topN", 5, 5},
		{"default topN", 0, 10},
		{"negative topN", -3, 10},
		{"topN above candidate count", 100, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Recommend(context.Background(), weddingRequirements(), tt.topN)
			require.NoError(t, err)
			require.Len(t, got, tt.expected)
			for i := 1; i < len(got); i++ {
				assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
			}
		})
	}
}

func TestRecommend_TiesBrokenByID(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return([]venue.Venue{
		banquetHall("zeta"), banquetHall("alpha"), banquetHall("mu"),
	}, nil)

	engine := newTestEngine(t, catalog, nil, Config{})
	got, err := engine.Recommend(context.Background(), weddingRequirements(), 10)

	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mu", "zeta"}, ids(got))
}

func TestRecommend_EmptyCatalogIsNotAnError(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return(nil, nil)

	engine := newTestEngine(t, catalog, nil, Config{})
	got, err := engine.Recommend(context.Background(), weddingRequirements(), 10)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecommend_RelaxesHintsWhenNothingMatches(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.MatchedBy(func(f venue.CandidateFilter) bool {
		return f.Category == "stadium"
	})).Return([]venue.Venue{}, nil).Once()
	catalog.On("FetchCandidates", mock.Anything, mock.MatchedBy(func(f venue.CandidateFilter) bool {
		return f.Category == "" && f.MinRating == 0 && f.MinCapacity == 200
	})).Return([]venue.Venue{banquetHall("fallback")}, nil).Once()

	req := weddingRequirements()
	req.Category = "stadium"
	req.MinRating = 4

	engine := newTestEngine(t, catalog, nil, Config{})
	res, err := engine.RecommendDetailed(context.Background(), req, 10)

	require.NoError(t, err)
	assert.True(t, res.FiltersRelaxed)
	assert.Equal(t, []string{"fallback"}, ids(res.Recommendations))
	catalog.AssertExpectations(t)
}

func TestRecommend_NoRelaxationWithoutHints(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return([]venue.Venue{}, nil).Once()

	engine := newTestEngine(t, catalog, nil, Config{})
	res, err := engine.RecommendDetailed(context.Background(), weddingRequirements(), 10)

	require.NoError(t, err)
	assert.False(t, res.FiltersRelaxed)
	catalog.AssertNumberOfCalls(t, "FetchCandidates", 1)
}

func TestRecommend_CatalogFailure(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	engine := newTestEngine(t, catalog, nil, Config{})
	_, err := engine.Recommend(context.Background(), weddingRequirements(), 10)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCatalogUnavailable)
}

func TestRecommend_FilterErrorsPassThrough(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewInvalidFilterFormatError("sortBy distance requires a location"))

	req := weddingRequirements()
	req.SortBy = venue.SortDistance

	engine := newTestEngine(t, catalog, nil, Config{})
	_, err := engine.Recommend(context.Background(), req, 10)

	assert.ErrorIs(t, err, apperrors.ErrInvalidFilterFormat)
	assert.False(t, errors.Is(err, apperrors.ErrCatalogUnavailable))
}

func TestRecommend_InvalidRequirements(t *testing.T) {
	catalog := new(MockCatalog)
	engine := newTestEngine(t, catalog, nil, Config{})

	req := weddingRequirements()
	req.GuestCount = 0
	_, err := engine.Recommend(context.Background(), req, 10)

	assert.ErrorIs(t, err, apperrors.ErrInvalidEventRequirements)
	catalog.AssertNotCalled(t, "FetchCandidates", mock.Anything, mock.Anything)
}

func TestRecommend_InvalidVenuesAreSkipped(t *testing.T) {
	bad := banquetHall("broken")
	bad.Rating = 7
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return([]venue.Venue{bad, banquetHall("good")}, nil)

	engine := newTestEngine(t, catalog, nil, Config{})
	res, err := engine.RecommendDetailed(context.Background(), weddingRequirements(), 10)

	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, ids(res.Recommendations))
	assert.Equal(t, 2, res.CandidateCount)
	assert.Equal(t, 1, res.SkippedCount)
	assert.NotEmpty(t, res.RequestID)
}

func TestRecommend_DistanceSelectsProximityProfile(t *testing.T) {
	near := banquetHall("near")
	near.Latitude, near.Longitude = 12.9716, 77.5946
	far := banquetHall("far")
	far.Latitude, far.Longitude = 12.2958, 76.6394
	noCoords := banquetHall("unplaced")

	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return([]venue.Venue{far, noCoords, near}, nil)

	req := weddingRequirements()
	req.Location = &venue.GeoPoint{Lat: 12.9716, Lon: 77.5946}

	engine := newTestEngine(t, catalog, nil, Config{})
	got, err := engine.Recommend(context.Background(), req, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	byID := map[string]venue.ScoredVenue{}
	for _, s := range got {
		byID[s.Venue.ID] = s
	}
	assert.Equal(t, "proximity", byID["near"].Profile)
	require.NotNil(t, byID["near"].DistanceKm)
	assert.InDelta(t, 0, *byID["near"].DistanceKm, 1e-9)
	assert.Equal(t, "proximity", byID["far"].Profile)
	assert.Greater(t, *byID["far"].DistanceKm, 100.0)
	assert.Equal(t, "standard", byID["unplaced"].Profile)
	assert.Nil(t, byID["unplaced"].DistanceKm)
	assert.Greater(t, byID["near"].Score, byID["far"].Score)
}

// ==========================
// Weather Override
// ==========================

func outdoorGardenAndHall() []venue.Venue {
	garden := banquetHall("a-garden")
	garden.Type = venue.Outdoor
	return []venue.Venue{garden, banquetHall("b-hall")}
}

func outdoorPartyAt(lat, lon float64) venue.EventRequirements {
	req := weddingRequirements()
	req.VenueTypePreference = venue.Outdoor
	req.Location = &venue.GeoPoint{Lat: lat, Lon: lon}
	req.Date = eventDay()
	return req
}

func TestRecommend_WeatherOverride(t *testing.T) {
	tests := []struct {
		name     string
		forecast weather.Forecast
		indoor   bool
		first    string
	}{
		{"rain forces indoor", weather.Forecast{Condition: "Light Rain", TemperatureC: 22}, true, "b-hall"},
		{"heat forces indoor", weather.Forecast{Condition: "Sunny", TemperatureC: 38}, true, "b-hall"},
		{"clear keeps preference", weather.Forecast{Condition: "Clear", TemperatureC: 26}, false, "a-garden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := new(MockCatalog)
			catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return(outdoorGardenAndHall(), nil)
			oracle := new(MockOracle)
			oracle.On("Forecast", mock.Anything, 12.97, 77.59, *eventDay()).Return(tt.forecast, nil)

			engine := newTestEngine(t, catalog, oracle, Config{})
			res, err := engine.RecommendDetailed(context.Background(), outdoorPartyAt(12.97, 77.59), 10)

			require.NoError(t, err)
			assert.Equal(t, tt.indoor, res.IndoorOverride)
			require.NotNil(t, res.Forecast)
			assert.Equal(t, tt.first, res.Recommendations[0].Venue.ID)
			oracle.AssertExpectations(t)
		})
	}
}

func TestRecommend_WeatherOverrideLeavesPlacedVenuesUnchanged(t *testing.T) {
	// An event location selects the proximity profile, which has no
	// venue-type criterion, so the override cannot reorder placed venues.
	placed := outdoorGardenAndHall()
	for i := range placed {
		placed[i].Latitude, placed[i].Longitude = 12.97, 77.59
	}

	run := func(t *testing.T, forecast weather.Forecast) *Result {
		catalog := new(MockCatalog)
		catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return(placed, nil)
		oracle := new(MockOracle)
		oracle.On("Forecast", mock.Anything, 12.97, 77.59, *eventDay()).Return(forecast, nil)

		engine := newTestEngine(t, catalog, oracle, Config{})
		res, err := engine.RecommendDetailed(context.Background(), outdoorPartyAt(12.97, 77.59), 10)
		require.NoError(t, err)
		return res
	}

	rainy := run(t, weather.Forecast{Condition: "Heavy Rain", TemperatureC: 21})
	clear := run(t, weather.Forecast{Condition: "Clear", TemperatureC: 21})

	assert.True(t, rainy.IndoorOverride)
	assert.False(t, clear.IndoorOverride)
	require.Len(t, rainy.Recommendations, 2)
	require.Len(t, clear.Recommendations, 2)

	for i := range rainy.Recommendations {
		got, want := rainy.Recommendations[i], clear.Recommendations[i]
		assert.Equal(t, "proximity", got.Profile)
		assert.Nil(t, got.Breakdown.VenueType)
		assert.Equal(t, want.Venue.ID, got.Venue.ID)
		assert.InDelta(t, want.Score, got.Score, 1e-9)
	}
	assert.Equal(t, "a-garden", rainy.Recommendations[0].Venue.ID)
}

func TestRecommend_PartialWeatherPolicyIsDefaulted(t *testing.T) {
	tests := []struct {
		name     string
		policy   weather.Policy
		forecast weather.Forecast
		indoor   bool
	}{
		{"keywords only keeps default heat threshold", weather.Policy{RainKeywords: []string{"monsoon"}}, weather.Forecast{Condition: "Clear", TemperatureC: 20}, false},
		{"keywords only still trips on heat", weather.Policy{RainKeywords: []string{"monsoon"}}, weather.Forecast{Condition: "Clear", TemperatureC: 38}, true},
		{"custom keyword matches", weather.Policy{RainKeywords: []string{"monsoon"}}, weather.Forecast{Condition: "Monsoon", TemperatureC: 25}, true},
		{"threshold only keeps default keywords", weather.Policy{HeatThresholdC: 40}, weather.Forecast{Condition: "Drizzle", TemperatureC: 25}, true},
		{"threshold only raises heat limit", weather.Policy{HeatThresholdC: 40}, weather.Forecast{Condition: "Sunny", TemperatureC: 38}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := new(MockCatalog)
			catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return(outdoorGardenAndHall(), nil)
			oracle := new(MockOracle)
			oracle.On("Forecast", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tt.forecast, nil)

			engine := newTestEngine(t, catalog, oracle, Config{Policy: tt.policy})
			res, err := engine.RecommendDetailed(context.Background(), outdoorPartyAt(12.97, 77.59), 10)

			require.NoError(t, err)
			assert.Equal(t, tt.indoor, res.IndoorOverride)
		})
	}
}

func TestRecommend_WeatherFailureKeepsPreference(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return(outdoorGardenAndHall(), nil)
	oracle := new(MockOracle)
	oracle.On("Forecast", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(weather.Forecast{}, apperrors.NewWeatherUnavailableError(errors.New("503")))

	engine := newTestEngine(t, catalog, oracle, Config{})
	res, err := engine.RecommendDetailed(context.Background(), outdoorPartyAt(12.97, 77.59), 10)

	require.NoError(t, err)
	assert.False(t, res.IndoorOverride)
	assert.Nil(t, res.Forecast)
	assert.Equal(t, "a-garden", res.Recommendations[0].Venue.ID)
}

func TestRecommend_WeatherTimeout(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return(outdoorGardenAndHall(), nil)
	oracle := new(MockOracle)
	oracle.On("Forecast", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(weather.Forecast{}, context.DeadlineExceeded)

	engine := newTestEngine(t, catalog, oracle, Config{WeatherTimeout: 20 * time.Millisecond})
	start := time.Now()
	res, err := engine.RecommendDetailed(context.Background(), outdoorPartyAt(12.97, 77.59), 10)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, res.IndoorOverride)
	assert.Len(t, res.Recommendations, 2)
}

func TestRecommend_WeatherNeedsLocationAndDate(t *testing.T) {
	catalog := new(MockCatalog)
	catalog.On("FetchCandidates", mock.Anything, mock.Anything).Return(outdoorGardenAndHall(), nil)
	oracle := new(MockOracle)

	engine := newTestEngine(t, catalog, oracle, Config{})

	noDate := outdoorPartyAt(12.97, 77.59)
	noDate.Date = nil
	_, err := engine.Recommend(context.Background(), noDate, 10)
	require.NoError(t, err)

	noLocation := outdoorPartyAt(12.97, 77.59)
	noLocation.Location = nil
	_, err = engine.Recommend(context.Background(), noLocation, 10)
	require.NoError(t, err)

	oracle.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ==========================
// Rank
// ==========================

func TestRank_ParallelMatchesSequential(t *testing.T) {
	venues := randomVenues(300, 99)
	req := weddingRequirements()

	sequential := newTestEngine(t, nil, nil, Config{ParallelThreshold: 100000})
	parallel := newTestEngine(t, nil, nil, Config{ParallelThreshold: 1, MaxWorkers: 4})

	want := sequential.Rank(context.Background(), req, venues, len(venues))
	got := parallel.Rank(context.Background(), req, venues, len(venues))

	require.Len(t, got, len(venues))
	assert.Equal(t, want, got)
}

func TestRank_DoesNotMutateCandidates(t *testing.T) {
	venues := []venue.Venue{banquetHall("b"), banquetHall("a")}
	engine := newTestEngine(t, nil, nil, Config{})

	engine.Rank(context.Background(), weddingRequirements(), venues, 10)

	assert.Equal(t, "b", venues[0].ID)
}

func TestRecommend_NoCatalogConfigured(t *testing.T) {
	engine := newTestEngine(t, nil, nil, Config{})

	_, err := engine.Recommend(context.Background(), weddingRequirements(), 10)

	assert.ErrorIs(t, err, apperrors.ErrCatalogUnavailable)
}

// ==========================
// BuildFilter
// ==========================

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name        string
		budget      venue.BudgetRange
		guests      int
		minCapacity int
		maxPrice    float64
	}{
		{"bounded budget", venue.Bounded(50000, 150000), 400, 200, 225000},
		{"under budget", venue.Under(20000), 75, 38, 30000},
		{"above budget has no ceiling", venue.Above(500000), 10, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := venue.EventRequirements{GuestCount: tt.guests, Budget: tt.budget, SortBy: venue.SortRating, MinRating: 3.5}
			f := BuildFilter(req, Config{})

			assert.Equal(t, tt.minCapacity, f.MinCapacity)
			assert.InDelta(t, tt.maxPrice, f.MaxPrice, 1e-9)
			assert.Equal(t, venue.SortRating, f.SortBy)
			assert.Equal(t, 3.5, f.MinRating)
			assert.Nil(t, f.Near)
		})
	}
}

func TestBuildFilter_CustomRatios(t *testing.T) {
	req := venue.EventRequirements{GuestCount: 100, Budget: venue.Bounded(0, 1000)}
	f := BuildFilter(req, Config{CapacityFloorRatio: 0.8, PriceCeilingSlack: 0.1})

	assert.Equal(t, 80, f.MinCapacity)
	assert.InDelta(t, 1100.0, f.MaxPrice, 1e-9)
}
