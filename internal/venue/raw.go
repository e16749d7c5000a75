package venue

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	apperrors "venue-recommender/internal/common/errors"
)

// rawEvent mirrors the loosely typed event map a process instance carries.
// Numbers may arrive as strings and budgets as strings, numbers or objects.
type rawEvent struct {
	GuestCount          int         `json:"guestCount"`
	Budget              interface{} `json:"budget"`
	EventType           string      `json:"eventType"`
	VenueType           string      `json:"venueType"`
	VenueTypePreference string      `json:"venueTypePreference"`
	Location            *GeoPoint   `json:"location"`
	Latitude            *float64    `json:"latitude"`
	Longitude           *float64    `json:"longitude"`
	Date                string      `json:"date"`
	City                string      `json:"city"`
	Category            string      `json:"category"`
	MinRating           float64     `json:"minRating"`
	SortBy              string      `json:"sortBy"`
	RadiusKm            float64     `json:"radiusKm"`
}

type rawBudget struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseRawEvent normalizes a raw event map into validated requirements.
func ParseRawEvent(raw map[string]interface{}) (EventRequirements, error) {
	if len(raw) == 0 {
		return EventRequirements{}, apperrors.NewInvalidEventRequirementsError("rawEvent is empty")
	}

	var ev rawEvent
	if err := weakDecode(raw, &ev); err != nil {
		return EventRequirements{}, apperrors.NewInvalidEventRequirementsError(err.Error())
	}

	budget, err := parseRawBudget(ev.Budget)
	if err != nil {
		return EventRequirements{}, err
	}

	req := EventRequirements{
		GuestCount: ev.GuestCount,
		Budget:     budget,
		EventType:  strings.TrimSpace(ev.EventType),
		City:       strings.TrimSpace(ev.City),
		Category:   strings.TrimSpace(ev.Category),
		MinRating:  ev.MinRating,
		SortBy:     SortBy(strings.ToLower(strings.TrimSpace(ev.SortBy))),
		RadiusKm:   ev.RadiusKm,
	}

	preference := ev.VenueTypePreference
	if preference == "" {
		preference = ev.VenueType
	}
	if strings.TrimSpace(preference) != "" {
		vt, ok := ParseVenueType(preference)
		if !ok {
			return EventRequirements{}, apperrors.NewInvalidEventRequirementsError(
				fmt.Sprintf("venue type %q must be indoor or outdoor", preference))
		}
		req.VenueTypePreference = vt
	}

	switch {
	case ev.Location != nil:
		loc := *ev.Location
		req.Location = &loc
	case ev.Latitude != nil && ev.Longitude != nil:
		req.Location = &GeoPoint{Lat: *ev.Latitude, Lon: *ev.Longitude}
	}

	if d := strings.TrimSpace(ev.Date); d != "" {
		date, err := parseDate(d)
		if err != nil {
			return EventRequirements{}, err
		}
		req.Date = &date
	}

	if err := req.Validate(); err != nil {
		return EventRequirements{}, err
	}
	return req, nil
}

func weakDecode(input interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func parseRawBudget(v interface{}) (BudgetRange, error) {
	switch b := v.(type) {
	case nil:
		return BudgetRange{}, apperrors.NewInvalidBudgetFormatError("")
	case string:
		return ParseBudget(b)
	case map[string]interface{}:
		var rb rawBudget
		if err := weakDecode(b, &rb); err != nil {
			return BudgetRange{}, apperrors.NewInvalidBudgetFormatError(fmt.Sprint(b))
		}
		switch {
		case rb.Min != nil && rb.Max != nil:
			return Bounded(*rb.Min, *rb.Max), nil
		case rb.Max != nil:
			return Under(*rb.Max), nil
		case rb.Min != nil:
			return Above(*rb.Min), nil
		}
		return BudgetRange{}, apperrors.NewInvalidBudgetFormatError(fmt.Sprint(b))
	default:
		var amount float64
		if err := weakDecode(b, &amount); err != nil {
			return BudgetRange{}, apperrors.NewInvalidBudgetFormatError(fmt.Sprint(b))
		}
		return Under(amount), nil
	}
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperrors.NewInvalidEventRequirementsError(fmt.Sprintf("date %q is not RFC3339 or YYYY-MM-DD", s))
}
