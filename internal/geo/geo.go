// Package geo provides straight-line distance math and path helpers for
// rendering run routes. Nothing here keeps state.
package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// MilesPerKm converts kilometers to statute miles.
	MilesPerKm = 0.621371
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p is a finite coordinate inside the lat/lng ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// HaversineKm returns the great-circle distance in kilometers between two
// coordinates given in decimal degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// MilesFromKm converts kilometers to miles.
func MilesFromKm(km float64) float64 {
	return km * MilesPerKm
}

// HaversineMiles is HaversineKm expressed in miles.
func HaversineMiles(a, b Point) float64 {
	return MilesFromKm(HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
