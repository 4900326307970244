// Package geo holds the straight-line geometry used by radius searches:
// great-circle distance and the coordinate bounding box used as a cheap
// SQL pre-filter.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// kmPerDegreeLat is the approximate length of one degree of latitude.
const kmPerDegreeLat = 111.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether p lies within the latitude/longitude ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Box is an inclusive latitude/longitude rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether p falls inside the box.
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// BoundingBox returns the rectangle around origin covering radiusKm scaled
// by factor.  Road distance is usually 30-40% longer than the straight
// line, so callers pass a factor above 1 to keep candidates whose routed
// distance may still fit the radius.
func BoundingBox(origin Point, radiusKm, factor float64) Box {
	if factor <= 0 {
		factor = 1
	}
	expanded := radiusKm * factor
	latDelta := expanded / kmPerDegreeLat
	cosLat := math.Cos(toRad(origin.Lat))
	// near the poles the longitude delta blows up; cover the whole circle
	lngDelta := 180.0
	if cosLat > 1e-9 {
		lngDelta = math.Min(180, expanded/(kmPerDegreeLat*cosLat))
	}
	return Box{
		MinLat: origin.Lat - latDelta,
		MaxLat: origin.Lat + latDelta,
		MinLng: origin.Lng - lngDelta,
		MaxLng: origin.Lng + lngDelta,
	}
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
