package scoring

import "fmt"

// Criterion names used in weight tables and config overrides.
const (
	CriterionCapacity  = "capacity"
	CriterionBudget    = "budget"
	CriterionVenueType = "venue_type"
	CriterionRating    = "rating"
	CriterionAmenities = "amenities"
	CriterionCategory  = "category"
	CriterionDistance  = "distance"
)

type ProfileName string

const (
	// ProfileStandard is used when no distance to the requester is known.
	ProfileStandard ProfileName = "standard"
	// ProfileProximity replaces venue type and amenities with distance.
	ProfileProximity ProfileName = "proximity"
)

// Weights maps criterion to weight. Only criteria present take part.
type Weights map[string]float64

var (
	standardWeights = Weights{
		CriterionCapacity:  0.30,
		CriterionBudget:    0.25,
		CriterionVenueType: 0.15,
		CriterionRating:    0.15,
		CriterionAmenities: 0.10,
		CriterionCategory:  0.05,
	}
	proximityWeights = Weights{
		CriterionCapacity: 0.30,
		CriterionBudget:   0.25,
		CriterionDistance: 0.20,
		CriterionRating:   0.15,
		CriterionCategory: 0.10,
	}
)

func StandardWeights() Weights  { return standardWeights.clone() }
func ProximityWeights() Weights { return proximityWeights.clone() }

func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Merge overlays overrides onto w. Unknown criteria are rejected so a
// config typo cannot silently drop a criterion's influence.
func (w Weights) Merge(overrides map[string]float64) (Weights, error) {
	out := w.clone()
	for k, v := range overrides {
		if _, ok := out[k]; !ok {
			return nil, fmt.Errorf("criterion %q is not part of this profile", k)
		}
		if v < 0 {
			return nil, fmt.Errorf("weight for %q must not be negative", k)
		}
		out[k] = v
	}
	return out, nil
}

// Normalized rescales the weights to sum to 1.
func (w Weights) Normalized() Weights {
	total := 0.0
	for _, v := range w {
		total += v
	}
	out := make(Weights, len(w))
	if total == 0 {
		return out
	}
	for k, v := range w {
		out[k] = v / total
	}
	return out
}
