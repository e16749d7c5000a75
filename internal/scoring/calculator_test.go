package scoring

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-recommender/internal/venue"
)

// ==========================
// Test Helper Functions
// ==========================

func weddingVenue() venue.Venue {
	return venue.Venue{
		ID:          "banquet-1",
		Capacity:    500,
		PriceRange:  100000,
		Category:    "banquet_hall",
		Type:        venue.Indoor,
		Rating:      4.5,
		ReviewCount: 50,
		Amenities:   []string{"catering", "stage", "parking", "ac"},
	}
}

func weddingEvent() venue.EventRequirements {
	return venue.EventRequirements{
		GuestCount:          400,
		Budget:              venue.Bounded(50000, 150000),
		EventType:           "wedding",
		VenueTypePreference: venue.Indoor,
	}
}

func ptr(f float64) *float64 { return &f }

// ==========================
// Scenarios
// ==========================

func TestCalculator_WeddingScenarioScoresFull(t *testing.T) {
	calc := NewDefaultCalculator()

	res := calc.Score(weddingVenue(), weddingEvent(), nil)

	assert.Equal(t, ProfileStandard, res.Profile)
	assert.Equal(t, 100.0, res.Breakdown.Capacity)
	assert.Equal(t, 100.0, res.Breakdown.Budget)
	assert.Equal(t, 100.0, *res.Breakdown.VenueType)
	assert.Equal(t, 100.0, *res.Breakdown.Amenities)
	assert.Equal(t, 100.0, res.Breakdown.Category)
	assert.Equal(t, 100.0, res.Breakdown.Rating)
	assert.Nil(t, res.Breakdown.Distance)
	assert.InDelta(t, 100.0, res.Score, 0.01)
}

func TestCalculator_OversizedVenueUsesRatioProfile(t *testing.T) {
	calc := NewDefaultCalculator()
	event := weddingEvent()
	event.GuestCount = 50

	res := calc.Score(weddingVenue(), event, nil)

	assert.Equal(t, 60.0, res.Breakdown.Capacity)
	// 0.30*60 + 0.25*100 + 0.15*100 + 0.15*100 + 0.10*100 + 0.05*100
	assert.InDelta(t, 88.0, res.Score, 0.01)
}

func TestCalculator_AboveBudgetFloorNotMet(t *testing.T) {
	calc := NewDefaultCalculator()
	event := weddingEvent()
	budget, err := venue.ParseBudget("Above 500000")
	require.NoError(t, err)
	event.Budget = budget

	res := calc.Score(weddingVenue(), event, nil)

	assert.Equal(t, 70.0, res.Breakdown.Budget)
	assert.InDelta(t, 92.5, res.Score, 0.01)
}

func TestCalculator_ProximityProfile(t *testing.T) {
	calc := NewDefaultCalculator()

	res := calc.Score(weddingVenue(), weddingEvent(), ptr(3))

	require.Equal(t, ProfileProximity, res.Profile)
	assert.Nil(t, res.Breakdown.VenueType)
	assert.Nil(t, res.Breakdown.Amenities)
	require.NotNil(t, res.Breakdown.Distance)
	assert.Equal(t, 90.0, *res.Breakdown.Distance)
	// deviation capacity: 100 - 100*100/400 = 75
	assert.Equal(t, 75.0, res.Breakdown.Capacity)
	// 0.30*75 + 0.25*100 + 0.20*90 + 0.15*100 + 0.10*100
	assert.InDelta(t, 90.5, res.Score, 0.01)
}

func TestCalculator_UnusableDistanceFallsBackToStandard(t *testing.T) {
	calc := NewDefaultCalculator()
	for _, d := range []*float64{nil, ptr(-1), ptr(math.NaN()), ptr(math.Inf(1))} {
		assert.Equal(t, ProfileStandard, calc.Score(weddingVenue(), weddingEvent(), d).Profile)
	}
}

func TestCalculator_UnknownEventTypeUsesDefaultBucket(t *testing.T) {
	calc := NewDefaultCalculator()
	v := weddingVenue()
	v.Category = "event_venue"
	v.Amenities = []string{"parking", "restrooms"}
	event := weddingEvent()
	event.EventType = "Hackathon"

	res := calc.Score(v, event, nil)

	assert.Equal(t, 100.0, *res.Breakdown.Amenities)
	assert.Equal(t, 100.0, res.Breakdown.Category)
}

// ==========================
// Properties
// ==========================

func TestCalculator_ScoreAlwaysWithinBounds(t *testing.T) {
	calc := NewDefaultCalculator()
	rng := rand.New(rand.NewSource(42))
	categories := []string{"banquet_hall", "stadium", "hotel", "open_ground", "unknown"}
	eventTypes := []string{"wedding", "party", "sports", "conference", "other", ""}
	budgets := []venue.BudgetRange{
		venue.Bounded(1000, 50000), venue.Under(20000), venue.Above(10000), venue.Under(0),
	}

	for i := 0; i < 2000; i++ {
		v := venue.Venue{
			ID:          "v",
			Capacity:    rng.Intn(5000),
			PriceRange:  rng.Float64() * 200000,
			Category:    categories[rng.Intn(len(categories))],
			Type:        []venue.VenueType{venue.Indoor, venue.Outdoor}[rng.Intn(2)],
			Rating:      rng.Float64() * 5,
			ReviewCount: rng.Intn(100000),
		}
		if rng.Intn(3) > 0 {
			v.Amenities = []string{"parking", "bar", "wifi"}[:rng.Intn(3)]
		}
		event := venue.EventRequirements{
			GuestCount:          1 + rng.Intn(3000),
			Budget:              budgets[rng.Intn(len(budgets))],
			EventType:           eventTypes[rng.Intn(len(eventTypes))],
			VenueTypePreference: venue.Outdoor,
		}
		var d *float64
		if rng.Intn(2) == 0 {
			d = ptr(rng.Float64() * 120)
		}

		score := calc.ScoreValue(v, event, d)
		require.GreaterOrEqual(t, score, 0.0)
		require.LessOrEqual(t, score, 100.0)
	}
}

func TestCapacityStrategies_MonotonicAwayFromGuestCount(t *testing.T) {
	strategies := []CapacityStrategy{RatioCapacity{}, DeviationCapacity{}}
	guests := 200

	for _, s := range strategies {
		t.Run(s.Name(), func(t *testing.T) {
			prev := s.Score(guests, guests)
			for capacity := guests + 1; capacity <= guests*10; capacity++ {
				cur := s.Score(capacity, guests)
				require.LessOrEqual(t, cur, prev, "oversized capacity %d", capacity)
				prev = cur
			}

			prev = s.Score(guests, guests)
			for capacity := guests - 1; capacity >= 0; capacity-- {
				cur := s.Score(capacity, guests)
				require.LessOrEqual(t, cur, prev, "undersized capacity %d", capacity)
				prev = cur
			}
		})
	}
}

// ==========================
// Configuration
// ==========================

func TestNewCalculator_ForcedStrategy(t *testing.T) {
	calc, err := NewCalculator(Config{CapacityStrategy: "deviation"})
	require.NoError(t, err)
	assert.Equal(t, "deviation", calc.CapacityStrategies()[ProfileStandard])

	event := weddingEvent()
	event.GuestCount = 50
	res := calc.Score(weddingVenue(), event, nil)
	// 100 - 450*100/50 clamps to 0
	assert.Equal(t, 0.0, res.Breakdown.Capacity)

	_, err = NewCalculator(Config{CapacityStrategy: "linear"})
	assert.Error(t, err)
}

func TestNewCalculator_WeightOverridesAreRenormalized(t *testing.T) {
	calc, err := NewCalculator(Config{StandardWeights: map[string]float64{CriterionBudget: 0.50}})
	require.NoError(t, err)

	sum := 0.0
	for _, w := range calc.standard {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.50/1.25, calc.standard[CriterionBudget], 1e-9)

	_, err = NewCalculator(Config{StandardWeights: map[string]float64{CriterionDistance: 0.2}})
	assert.Error(t, err)

	_, err = NewCalculator(Config{ProximityWeights: map[string]float64{CriterionRating: -1}})
	assert.Error(t, err)
}

func TestBuiltInProfilesSumToOne(t *testing.T) {
	for name, w := range map[string]Weights{"standard": StandardWeights(), "proximity": ProximityWeights()} {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9, name)
	}
}
