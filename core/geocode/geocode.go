// Package geocode resolves free-text locations to coordinates.
package geocode

import (
	"context"

	"github.com/kilianp07/crisistriage/core/model"
)

const (
	// FoundConfidence is reported for a successful lookup.
	FoundConfidence = 0.8
	// NotFoundConfidence is reported when the text could not be resolved.
	NotFoundConfidence = 0.3
)

// Geocoder resolves location text. A lookup that finds nothing is not an
// error: it returns a location with IsGeocoded false. Errors are reserved for
// transport failures.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (model.Location, error)
}

// NotFound returns the location reported when text cannot be resolved.
func NotFound(text string) model.Location {
	return model.Location{RawText: text, Confidence: NotFoundConfidence}
}

// Found returns a successfully geocoded location.
func Found(text, address string, lat, lon float64) model.Location {
	return model.Location{
		RawText:    text,
		Address:    address,
		Latitude:   &lat,
		Longitude:  &lon,
		Confidence: FoundConfidence,
		IsGeocoded: true,
	}
}
