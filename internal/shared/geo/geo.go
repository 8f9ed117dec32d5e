package geo

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusM is the spherical approximation used for all distances.
	EarthRadiusM = 6371000.0
	// DefaultCompletionRadiusM is the geofence applied when a waypoint has no override.
	DefaultCompletionRadiusM = 15.0
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// DistanceMeters returns the haversine great-circle distance between two
// WGS-84 points given in degrees.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// WithinRange reports whether the user is inside the geofence. The boundary
// is inclusive. A non-positive radius selects DefaultCompletionRadiusM.
func WithinRange(userLat, userLng, targetLat, targetLng, radiusM float64) bool {
	if radiusM <= 0 {
		radiusM = DefaultCompletionRadiusM
	}
	return DistanceMeters(userLat, userLng, targetLat, targetLng) <= radiusM
}

// ValidCoordinate reports whether lat/lng are finite and inside WGS-84 ranges.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Center is the arithmetic mean of the points, or the zero point for none.
func Center(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sum Point
	for _, p := range points {
		sum.Lat += p.Lat
		sum.Lng += p.Lng
	}
	n := float64(len(points))
	return Point{Lat: sum.Lat / n, Lng: sum.Lng / n}
}

// BoundsOf returns the box enclosing every point; ok is false for none.
func BoundsOf(points []Point) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{North: points[0].Lat, South: points[0].Lat, East: points[0].Lng, West: points[0].Lng}
	for _, p := range points[1:] {
		b.North = math.Max(b.North, p.Lat)
		b.South = math.Min(b.South, p.Lat)
		b.East = math.Max(b.East, p.Lng)
		b.West = math.Min(b.West, p.Lng)
	}
	return b, true
}

// FormatDistance renders meters as "42m" below a kilometre and "1.3km" above.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}
