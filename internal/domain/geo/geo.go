package geo

import "math"

// EarthRadiusMeters is the mean radius of Earth used for Haversine distance.
const EarthRadiusMeters = 6_371_000.0

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Box is an axis-aligned latitude/longitude rectangle.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether p lies inside the box (inclusive).
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Haversine returns the great-circle distance in meters between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Distance is Haversine over two Points.
func Distance(a, b Point) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// BoundingBox returns the lat/lon rectangle around center that encloses a circle
// of radiusMeters. Longitude span widens by 1/cos(lat) to account for meridian
// convergence. The box admits a thin margin of false positives near its edges;
// callers re-filter with exact Haversine.
func BoundingBox(center Point, radiusMeters float64) Box {
	angular := radiusMeters / EarthRadiusMeters * 180 / math.Pi

	lonDelta := 180.0
	if cosLat := math.Cos(center.Lat * math.Pi / 180); cosLat > 1e-9 {
		lonDelta = angular / cosLat
	}

	return Box{
		MinLat: math.Max(center.Lat-angular, -90),
		MaxLat: math.Min(center.Lat+angular, 90),
		MinLon: math.Max(center.Lon-lonDelta, -180),
		MaxLon: math.Min(center.Lon+lonDelta, 180),
	}
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
