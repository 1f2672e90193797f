// Package exifgps extracts embedded GPS coordinates from image bytes. It is
// the only place the backend reads EXIF; everything above it works with
// plain coordinates.
package exifgps

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"

	"crowdcare-be/geomath"
)

var log = logrus.WithField("prefix", "exifgps")

// Extractor implements verification.CoordinateExtractor on top of goexif.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractCoordinate returns the GPS coordinate embedded in the image, if
// any. Images without EXIF, without a GPS block, or with an obviously bogus
// (0,0) fix all come back as not found rather than as errors; the caller
// treats both the same way.
func (e *Extractor) ExtractCoordinate(imageBytes []byte) (geomath.Coordinate, bool, error) {
	if len(imageBytes) == 0 {
		return geomath.Coordinate{}, false, nil
	}

	x, err := exif.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		log.WithError(err).Debug("no decodable EXIF block")
		return geomath.Coordinate{}, false, nil
	}

	lat, lon, err := x.LatLong()
	if err != nil {
		return geomath.Coordinate{}, false, nil
	}

	coord := geomath.Coordinate{Latitude: lat, Longitude: lon}
	if !coord.Valid() {
		log.Warnf("EXIF coordinate out of range: %.6f, %.6f", lat, lon)
		return geomath.Coordinate{}, false, nil
	}

	// Cameras without a fix sometimes write a zeroed GPS block.
	if lat == 0 && lon == 0 {
		return geomath.Coordinate{}, false, nil
	}

	return coord, true, nil
}
