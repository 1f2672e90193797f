package geomath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceZeroForSamePoint(t *testing.T) {
	points := []Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 22.7512, Longitude: 75.8754},
		{Latitude: -90, Longitude: 180},
		{Latitude: 89.9999, Longitude: -179.9999},
	}
	for _, p := range points {
		d, err := Distance(p, p)
		require.NoError(t, err)
		assert.Equal(t, 0.0, d)
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := Coordinate{Latitude: 22.7512, Longitude: 75.8754}
	b := Coordinate{Latitude: -33.8688, Longitude: 151.2093}

	ab, err := Distance(a, b)
	require.NoError(t, err)
	ba, err := Distance(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestDistanceKnownFixture(t *testing.T) {
	// Indore city fixture from the field validation run.
	a := Coordinate{Latitude: 22.7512, Longitude: 75.8754}
	b := Coordinate{Latitude: 22.7520, Longitude: 75.8760}

	d, err := Distance(a, b)
	require.NoError(t, err)
	assert.InEpsilon(t, 107.0, d, 0.05)
	assert.Greater(t, d, 100.0)
	assert.Less(t, d, 115.0)
}

func TestDistanceNearAntipode(t *testing.T) {
	a := Coordinate{Latitude: 0, Longitude: 0}
	b := Coordinate{Latitude: 0, Longitude: 180}

	d, err := Distance(a, b)
	require.NoError(t, err)
	// Half the mean circumference.
	assert.InEpsilon(t, 20015086.0, d, 0.001)
}

func TestDistanceInvalidCoordinates(t *testing.T) {
	valid := Coordinate{Latitude: 10, Longitude: 10}
	invalid := []Coordinate{
		{Latitude: 91, Longitude: 0},
		{Latitude: -91, Longitude: 0},
		{Latitude: 0, Longitude: 181},
		{Latitude: 0, Longitude: -181},
	}
	for _, c := range invalid {
		_, err := Distance(valid, c)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
		_, err = Distance(c, valid)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	}
}

func TestBearingCardinalDirections(t *testing.T) {
	origin := Coordinate{Latitude: 0, Longitude: 0}

	north, err := Bearing(origin, Coordinate{Latitude: 1, Longitude: 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, north, 0.01)

	east, err := Bearing(origin, Coordinate{Latitude: 0, Longitude: 1})
	require.NoError(t, err)
	assert.InDelta(t, 90.0, east, 0.01)

	south, err := Bearing(origin, Coordinate{Latitude: -1, Longitude: 0})
	require.NoError(t, err)
	assert.InDelta(t, 180.0, south, 0.01)

	west, err := Bearing(origin, Coordinate{Latitude: 0, Longitude: -1})
	require.NoError(t, err)
	assert.InDelta(t, 270.0, west, 0.01)
}

func TestCoordinateValid(t *testing.T) {
	assert.True(t, Coordinate{Latitude: 90, Longitude: 180}.Valid())
	assert.True(t, Coordinate{Latitude: -90, Longitude: -180}.Valid())
	assert.False(t, Coordinate{Latitude: 90.0001, Longitude: 0}.Valid())
	assert.False(t, Coordinate{Latitude: 0, Longitude: -180.0001}.Valid())
}
