package scoring

import "strings"

// Amenity tags.
const (
	AmenityParking     = "parking"
	AmenityAC          = "ac"
	AmenityCatering    = "catering"
	AmenityWiFi        = "wifi"
	AmenityStage       = "stage"
	AmenitySoundSystem = "sound_system"
	AmenityLighting    = "lighting"
	AmenityBar         = "bar"
	AmenityRestrooms   = "restrooms"
)

// Venue categories referenced by the suitability table.
const (
	CategoryBanquetHall      = "banquet_hall"
	CategoryCommunityCenter  = "community_center"
	CategoryHotel            = "hotel"
	CategoryConferenceCenter = "conference_center"
	CategoryAuditorium       = "auditorium"
	CategoryOpenGround       = "open_ground"
	CategoryRestaurant       = "restaurant"
	CategoryStadium          = "stadium"
	CategoryExhibitionHall   = "exhibition_hall"
	CategoryEventVenue       = "event_venue"
)

const defaultKey = "default"

var requiredAmenities = map[string][]string{
	"wedding":    {AmenityCatering, AmenityStage, AmenityParking, AmenityAC},
	"corporate":  {AmenityWiFi, AmenitySoundSystem, AmenityAC, AmenityParking},
	"conference": {AmenityWiFi, AmenitySoundSystem, AmenityAC, AmenityParking},
	"party":      {AmenitySoundSystem, AmenityLighting, AmenityBar},
	defaultKey:   {AmenityParking, AmenityRestrooms},
}

var suitableCategories = map[string][]string{
	"wedding":    {CategoryBanquetHall, CategoryCommunityCenter, CategoryHotel},
	"corporate":  {CategoryConferenceCenter, CategoryAuditorium, CategoryHotel},
	"conference": {CategoryConferenceCenter, CategoryAuditorium, CategoryHotel},
	"party":      {CategoryOpenGround, CategoryBanquetHall, CategoryRestaurant},
	"sports":     {CategoryStadium, CategoryOpenGround},
	"birthday":   {CategoryRestaurant, CategoryBanquetHall, CategoryOpenGround},
	"exhibition": {CategoryConferenceCenter, CategoryExhibitionHall, CategoryOpenGround},
	defaultKey:   {CategoryEventVenue, CategoryBanquetHall},
}

// RequiredAmenities returns the amenity tags an event type expects. Unknown
// or empty event types use the default bucket. The returned slice is a copy.
func RequiredAmenities(eventType string) []string {
	return lookup(requiredAmenities, eventType)
}

// SuitableCategories returns the venue categories that suit an event type.
func SuitableCategories(eventType string) []string {
	return lookup(suitableCategories, eventType)
}

func lookup(table map[string][]string, eventType string) []string {
	values, ok := table[strings.ToLower(strings.TrimSpace(eventType))]
	if !ok {
		values = table[defaultKey]
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
