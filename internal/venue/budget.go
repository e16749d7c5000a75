package venue

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	apperrors "venue-recommender/internal/common/errors"
)

type BudgetKind string

const (
	BudgetBounded BudgetKind = "bounded"
	BudgetUnder   BudgetKind = "under"
	BudgetAbove   BudgetKind = "above"
)

// BudgetRange is one of three shapes: [Min,Max], "under Max" (Min = 0) or
// "above Min" (Max = +Inf).
type BudgetRange struct {
	Kind BudgetKind `json:"kind"`
	Min  float64    `json:"min"`
	Max  float64    `json:"max"`
}

func Bounded(min, max float64) BudgetRange {
	return BudgetRange{Kind: BudgetBounded, Min: min, Max: max}
}

func Under(max float64) BudgetRange {
	return BudgetRange{Kind: BudgetUnder, Min: 0, Max: max}
}

func Above(min float64) BudgetRange {
	return BudgetRange{Kind: BudgetAbove, Min: min, Max: math.Inf(1)}
}

func (b BudgetRange) Contains(price float64) bool {
	return price >= b.Min && price <= b.Max
}

// HasCeiling is false only for "above" ranges.
func (b BudgetRange) HasCeiling() bool {
	return b.Kind != BudgetAbove && !math.IsInf(b.Max, 1)
}

func (b BudgetRange) Validate() error {
	switch b.Kind {
	case BudgetBounded, BudgetUnder, BudgetAbove:
	default:
		return apperrors.NewInvalidEventRequirementsError("budget kind must be bounded, under or above")
	}
	if b.Min < 0 || math.IsNaN(b.Min) || math.IsNaN(b.Max) {
		return apperrors.NewInvalidEventRequirementsError("budget bounds must be non-negative numbers")
	}
	if b.HasCeiling() && b.Max < b.Min {
		return apperrors.NewInvalidEventRequirementsError("budget min exceeds max")
	}
	return nil
}

type budgetJSON struct {
	Kind BudgetKind `json:"kind"`
	Min  float64    `json:"min"`
	Max  *float64   `json:"max,omitempty"`
}

// MarshalJSON omits max for ranges without a ceiling.
func (b BudgetRange) MarshalJSON() ([]byte, error) {
	out := budgetJSON{Kind: b.Kind, Min: b.Min}
	if b.HasCeiling() {
		max := b.Max
		out.Max = &max
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the object form, with or without kind, and the raw
// budget strings ParseBudget understands.
func (b *BudgetRange) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		parsed, err := ParseBudget(raw)
		if err != nil {
			return err
		}
		*b = parsed
		return nil
	}

	var in budgetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	kind := in.Kind
	if kind == "" {
		switch {
		case in.Max == nil:
			kind = BudgetAbove
		case in.Min == 0:
			kind = BudgetUnder
		default:
			kind = BudgetBounded
		}
	}
	switch {
	case kind == BudgetAbove:
		*b = Above(in.Min)
	case in.Max == nil:
		*b = BudgetRange{Kind: kind, Min: in.Min, Max: math.Inf(1)}
	default:
		*b = BudgetRange{Kind: kind, Min: in.Min, Max: *in.Max}
	}
	return nil
}

var (
	amountPattern  = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?(?:\s?[kKmM]\b)?`)
	nonDigitOrDot  = regexp.MustCompile(`[^\d.]`)
	rangeSeparator = regexp.MustCompile(`(?i)\s*(?:-|–|to)\s*`)
)

// ParseBudget normalizes the budget strings users type into a BudgetRange:
// "Under 50,000", "below 5k", "Above 500000", "50000 - 150000", "$1,200".
// A single bare amount is read as a ceiling.
func ParseBudget(raw string) (BudgetRange, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return BudgetRange{}, apperrors.NewInvalidBudgetFormatError(raw)
	}
	lower := strings.ToLower(s)

	amounts := amountPattern.FindAllString(s, -1)
	values := make([]float64, 0, len(amounts))
	for _, a := range amounts {
		v, ok := parseAmount(a)
		if !ok {
			return BudgetRange{}, apperrors.NewInvalidBudgetFormatError(raw)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return BudgetRange{}, apperrors.NewInvalidBudgetFormatError(raw)
	}

	switch {
	case hasAnyPrefix(lower, "under", "below", "less than", "upto", "up to", "max", "<"):
		return Under(values[0]), nil
	case hasAnyPrefix(lower, "above", "over", "more than", "min", "from", ">"), strings.HasSuffix(lower, "+"):
		return Above(values[0]), nil
	case len(values) >= 2 && rangeSeparator.MatchString(s):
		lo, hi := values[0], values[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		return Bounded(lo, hi), nil
	case len(values) == 1:
		return Under(values[0]), nil
	default:
		return BudgetRange{}, apperrors.NewInvalidBudgetFormatError(raw)
	}
}

func parseAmount(a string) (float64, bool) {
	a = strings.TrimSpace(a)
	multiplier := 1.0
	switch {
	case strings.HasSuffix(a, "k"), strings.HasSuffix(a, "K"):
		multiplier = 1_000
	case strings.HasSuffix(a, "m"), strings.HasSuffix(a, "M"):
		multiplier = 1_000_000
	}
	digits := nonDigitOrDot.ReplaceAllString(a, "")
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return v * multiplier, true
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	s = strings.TrimLeft(s, " $₹€£")
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
