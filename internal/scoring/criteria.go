package scoring

import (
	"math"
	"strings"

	"venue-recommender/internal/venue"
)

const (
	maxScore = 100.0

	underBudgetScore   = 70.0
	typeMismatchScore  = 50.0
	noAmenitiesScore   = 50.0
	unsuitableCategory = 60.0
)

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(maxScore, math.Max(0, v))
}

// BudgetScore scores a venue price against a budget range. Prices under the
// floor are tolerated at 70 for every range kind, including "above" ranges
// that have no ceiling.
func BudgetScore(price float64, budget venue.BudgetRange) float64 {
	if price < budget.Min {
		return underBudgetScore
	}
	if !budget.HasCeiling() || price <= budget.Max {
		return maxScore
	}
	if budget.Max <= 0 {
		return 0
	}
	overage := (price - budget.Max) / budget.Max
	return clamp(maxScore - overage*100)
}

func VenueTypeScore(venueType, preference venue.VenueType) float64 {
	if strings.EqualFold(string(venueType), string(preference)) {
		return maxScore
	}
	return typeMismatchScore
}

// RatingScore blends the star rating with a logarithmic review-volume bonus
// capped at 20 points.
func RatingScore(rating float64, reviewCount int) float64 {
	reviews := math.Max(0, float64(reviewCount))
	bonus := math.Min(20, math.Log(reviews+1)*5)
	return clamp(math.Min(maxScore, rating*20+bonus))
}

// AmenitiesScore is the share of required amenities the venue offers. A
// venue without an amenities list gets a neutral 50.
func AmenitiesScore(amenities []string, required []string) float64 {
	if len(amenities) == 0 {
		return noAmenitiesScore
	}
	if len(required) == 0 {
		return maxScore
	}
	have := make(map[string]struct{}, len(amenities))
	for _, a := range amenities {
		have[normalizeTag(a)] = struct{}{}
	}
	matched := 0
	for _, r := range required {
		if _, ok := have[normalizeTag(r)]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(required)) * maxScore
}

func CategoryScore(category string, suitable []string) float64 {
	c := normalizeTag(category)
	for _, s := range suitable {
		if c == s {
			return maxScore
		}
	}
	return unsuitableCategory
}

// DistanceScore maps kilometres to a banded proximity score.
func DistanceScore(km float64) float64 {
	switch {
	case km <= 2:
		return 100
	case km <= 5:
		return 90
	case km <= 10:
		return 75
	case km <= 20:
		return 60
	case km <= 35:
		return 40
	case km <= 50:
		return 25
	default:
		return 10
	}
}

var tagReplacer = strings.NewReplacer(" ", "_", "-", "_")

func normalizeTag(s string) string {
	return tagReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}
