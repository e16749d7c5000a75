package venue

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "venue-recommender/internal/common/errors"
)

const DefaultEventType = "default"

// EventRequirements is the scoring input for one event.
type EventRequirements struct {
	GuestCount          int         `json:"guestCount" validate:"gt=0"`
	Budget              BudgetRange `json:"budget"`
	EventType           string      `json:"eventType"`
	VenueTypePreference VenueType   `json:"venueTypePreference" validate:"omitempty,oneof=indoor outdoor"`
	Location            *GeoPoint   `json:"location,omitempty" validate:"omitempty"`
	Date                *time.Time  `json:"date,omitempty"`
	City                string      `json:"city,omitempty"`
	Category            string      `json:"category,omitempty"`
	MinRating           float64     `json:"minRating,omitempty" validate:"gte=0,lte=5"`
	SortBy              SortBy      `json:"sortBy,omitempty"`
	RadiusKm            float64     `json:"radiusKm,omitempty" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural constraints. An unknown event type is not
// an error; lookups fall back to the default bucket.
func (r EventRequirements) Validate() error {
	if err := validate.Struct(r); err != nil {
		return apperrors.NewInvalidEventRequirementsError(describeValidation(err))
	}
	if err := r.Budget.Validate(); err != nil {
		return err
	}
	if r.SortBy != "" && !r.SortBy.Valid() {
		return apperrors.NewInvalidEventRequirementsError(fmt.Sprintf("unknown sortBy %q", r.SortBy))
	}
	return nil
}

// EventTypeKey is the lower-cased lookup key, "default" when unset.
func (r EventRequirements) EventTypeKey() string {
	key := strings.ToLower(strings.TrimSpace(r.EventType))
	if key == "" {
		return DefaultEventType
	}
	return key
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
