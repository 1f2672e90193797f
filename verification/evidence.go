package verification

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"crowdcare-be/geomath"
)

var log = logrus.WithField("prefix", "verification")

// CoordinateExtractor pulls an embedded GPS coordinate out of raw image
// bytes. The boolean is false when the image carries no usable location.
type CoordinateExtractor interface {
	ExtractCoordinate(imageBytes []byte) (geomath.Coordinate, bool, error)
}

// MissingLocationError means the evidence image carries no embedded GPS
// metadata. Resolution evidence must be auditable, so there is no fallback
// to device GPS here; the admin has to re-capture with location services on.
type MissingLocationError struct {
	Field string
}

func (e *MissingLocationError) Error() string {
	return fmt.Sprintf("no GPS metadata embedded in %s", e.Field)
}

// OutOfRadiusError means the evidence photo was taken too far from the
// reported location. The computed distance is kept so the client can tell
// the admin how far off they are.
type OutOfRadiusError struct {
	DistanceMeters float64
	MaxMeters      float64
}

func (e *OutOfRadiusError) Error() string {
	return fmt.Sprintf("evidence location %.2fm from report, maximum allowed %.2fm",
		e.DistanceMeters, e.MaxMeters)
}

// EvidenceResult is returned on accept and reject alike so the distance is
// always available for the audit record.
type EvidenceResult struct {
	Accepted           bool
	EvidenceCoordinate geomath.Coordinate
	DistanceMeters     float64
}

// EvidenceValidator checks that a resolution photo was taken close enough to
// the reported location. Pure and synchronous; it never touches storage.
type EvidenceValidator struct {
	extractor    CoordinateExtractor
	radiusMeters float64
}

func NewEvidenceValidator(extractor CoordinateExtractor, radiusMeters float64) *EvidenceValidator {
	return &EvidenceValidator{
		extractor:    extractor,
		radiusMeters: radiusMeters,
	}
}

// Validate extracts the evidence coordinate and checks it against the
// original report location. The radius check is inclusive: a photo at
// exactly the configured radius is accepted.
func (v *EvidenceValidator) Validate(imageBytes []byte, original geomath.Coordinate) (*EvidenceResult, error) {
	coord, found, err := v.extractor.ExtractCoordinate(imageBytes)
	if err != nil {
		log.WithError(err).Warn("evidence metadata extraction failed")
		return nil, &MissingLocationError{Field: "evidence image"}
	}
	if !found {
		return nil, &MissingLocationError{Field: "evidence image"}
	}

	distance, err := geomath.Distance(coord, original)
	if err != nil {
		return nil, err
	}

	result := &EvidenceResult{
		Accepted:           distance <= v.radiusMeters,
		EvidenceCoordinate: coord,
		DistanceMeters:     distance,
	}

	if !result.Accepted {
		return result, &OutOfRadiusError{
			DistanceMeters: distance,
			MaxMeters:      v.radiusMeters,
		}
	}

	return result, nil
}
