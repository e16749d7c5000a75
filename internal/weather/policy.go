package weather

import "strings"

// Policy decides whether a forecast forces an indoor venue.
type Policy struct {
	RainKeywords   []string
	HeatThresholdC float64
}

func DefaultPolicy() Policy {
	return Policy{
		RainKeywords:   []string{"rain", "drizzle", "shower", "thunderstorm"},
		HeatThresholdC: 35,
	}
}

// RequiresIndoor is true for rain-like conditions (substring, any case) or
// a temperature strictly above the heat threshold.
func (p Policy) RequiresIndoor(f Forecast) bool {
	condition := strings.ToLower(f.Condition)
	for _, kw := range p.RainKeywords {
		if kw != "" && strings.Contains(condition, strings.ToLower(kw)) {
			return true
		}
	}
	return f.TemperatureC > p.HeatThresholdC
}
