package scoring

import (
	"fmt"
	"math"
)

// CapacityStrategy scores how well a venue's capacity fits the guest count.
// Implementations must return a value in [0,100] that does not increase as
// the venue moves further from the ideal size.
type CapacityStrategy interface {
	Name() string
	Score(capacity, guestCount int) float64
}

// RatioCapacity rewards venues that the guests fill well and penalises
// undersized venues by two points per missing seat.
type RatioCapacity struct{}

func (RatioCapacity) Name() string { return "ratio" }

func (RatioCapacity) Score(capacity, guestCount int) float64 {
	if capacity >= guestCount {
		if capacity == 0 {
			return 100
		}
		ratio := float64(guestCount) / float64(capacity)
		switch {
		case ratio >= 0.8:
			return 100
		case ratio >= 0.5:
			return 80
		default:
			return 60
		}
	}
	return math.Max(0, 100-float64(guestCount-capacity)*2)
}

// DeviationCapacity scores by relative deviation from the guest count in
// either direction.
type DeviationCapacity struct{}

func (DeviationCapacity) Name() string { return "deviation" }

func (DeviationCapacity) Score(capacity, guestCount int) float64 {
	denom := math.Max(float64(guestCount), 1)
	dev := math.Abs(float64(capacity - guestCount))
	return clamp(100 - dev*100/denom)
}

// CapacityStrategyByName resolves a configured strategy name.
func CapacityStrategyByName(name string) (CapacityStrategy, error) {
	switch name {
	case "ratio":
		return RatioCapacity{}, nil
	case "deviation":
		return DeviationCapacity{}, nil
	default:
		return nil, fmt.Errorf("unknown capacity strategy %q", name)
	}
}
