package venue

import "math"

const earthRadiusKm = 6371.0

// DistanceKm is the great-circle (haversine) distance between two points.
func DistanceKm(a, b GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Point returns the venue's coordinates.
func (v Venue) Point() GeoPoint {
	return GeoPoint{Lat: v.Latitude, Lon: v.Longitude}
}

// BoundingBox returns the lat/lon box enclosing a radius around p. Used to
// turn a radius query into indexable range predicates.
func BoundingBox(p GeoPoint, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
	dLat := radiusKm / earthRadiusKm * 180 / math.Pi
	cosLat := math.Cos(p.Lat * math.Pi / 180)
	dLon := 180.0
	if cosLat > 1e-9 {
		dLon = math.Min(180, dLat/cosLat)
	}
	return p.Lat - dLat, p.Lat + dLat, p.Lon - dLon, p.Lon + dLon
}
