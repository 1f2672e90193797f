package geomath

import (
	"errors"
	"math"
)

// EarthRadiusMeters is the WGS84 mean radius used by every distance check in
// the backend. Both the duplicate check and the evidence radius check go
// through this package so the numbers can never drift apart.
const EarthRadiusMeters = 6371000.0

var ErrInvalidCoordinate = errors.New("coordinate out of range")

// Coordinate is an immutable WGS84 point.
type Coordinate struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Valid reports whether the coordinate is inside the WGS84 ranges.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b Coordinate) (float64, error) {
	if !a.Valid() || !b.Valid() {
		return 0, ErrInvalidCoordinate
	}

	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dlat := radians(b.Latitude - a.Latitude)
	dlon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)

	// Floating point can push h just outside [0,1], which makes Asin NaN.
	if h > 1 {
		h = 1
	} else if h < 0 {
		h = 0
	}

	return EarthRadiusMeters * 2 * math.Asin(math.Sqrt(h)), nil
}

// Bearing returns the initial great-circle bearing from a to b in degrees,
// normalized to [0, 360).
func Bearing(a, b Coordinate) (float64, error) {
	if !a.Valid() || !b.Valid() {
		return 0, ErrInvalidCoordinate
	}

	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dlon := radians(b.Longitude - a.Longitude)

	y := math.Sin(dlon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360), nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
