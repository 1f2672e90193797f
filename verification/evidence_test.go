package verification

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdcare-be/geomath"
)

type fakeExtractor struct {
	coord geomath.Coordinate
	found bool
	err   error
}

func (f *fakeExtractor) ExtractCoordinate(_ []byte) (geomath.Coordinate, bool, error) {
	return f.coord, f.found, f.err
}

var reportLocation = geomath.Coordinate{Latitude: 22.7512, Longitude: 75.8754}

func TestValidateMissingLocation(t *testing.T) {
	v := NewEvidenceValidator(&fakeExtractor{found: false}, 30)

	result, err := v.Validate([]byte("jpeg"), reportLocation)
	assert.Nil(t, result)

	var missing *MissingLocationError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "evidence image", missing.Field)
}

func TestValidateExtractorErrorTreatedAsMissing(t *testing.T) {
	v := NewEvidenceValidator(&fakeExtractor{err: errors.New("corrupt exif")}, 30)

	_, err := v.Validate([]byte("jpeg"), reportLocation)

	var missing *MissingLocationError
	assert.ErrorAs(t, err, &missing)
}

func TestValidateAcceptsWithinRadius(t *testing.T) {
	// A couple of meters away from the report location.
	evidence := geomath.Coordinate{Latitude: 22.75121, Longitude: 75.87541}
	v := NewEvidenceValidator(&fakeExtractor{coord: evidence, found: true}, 30)

	result, err := v.Validate([]byte("jpeg"), reportLocation)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, evidence, result.EvidenceCoordinate)
	assert.Greater(t, result.DistanceMeters, 0.0)
	assert.LessOrEqual(t, result.DistanceMeters, 30.0)
}

func TestValidateBoundaryExactlyAtRadiusAccepts(t *testing.T) {
	evidence := geomath.Coordinate{Latitude: 22.75121, Longitude: 75.87541}
	d, err := geomath.Distance(evidence, reportLocation)
	require.NoError(t, err)

	// Shrink the radius to exactly the computed distance; <= must accept.
	v := NewEvidenceValidator(&fakeExtractor{coord: evidence, found: true}, d)

	result, err := v.Validate([]byte("jpeg"), reportLocation)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
}

func TestValidateRejectsOutOfRadius(t *testing.T) {
	// Roughly a kilometer north.
	evidence := geomath.Coordinate{Latitude: 22.7602, Longitude: 75.8754}
	v := NewEvidenceValidator(&fakeExtractor{coord: evidence, found: true}, 30)

	result, err := v.Validate([]byte("jpeg"), reportLocation)

	var outOfRadius *OutOfRadiusError
	require.ErrorAs(t, err, &outOfRadius)
	assert.Equal(t, 30.0, outOfRadius.MaxMeters)
	assert.Greater(t, outOfRadius.DistanceMeters, 900.0)

	// Distance still reported for the audit trail.
	require.NotNil(t, result)
	assert.False(t, result.Accepted)
	assert.Equal(t, outOfRadius.DistanceMeters, result.DistanceMeters)
}

func TestValidateInvalidOriginalCoordinate(t *testing.T) {
	evidence := geomath.Coordinate{Latitude: 22.7512, Longitude: 75.8754}
	v := NewEvidenceValidator(&fakeExtractor{coord: evidence, found: true}, 30)

	_, err := v.Validate([]byte("jpeg"), geomath.Coordinate{Latitude: 95, Longitude: 0})
	assert.ErrorIs(t, err, geomath.ErrInvalidCoordinate)
}
