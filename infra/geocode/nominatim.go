// Package geocode implements core/geocode.Geocoder on OpenStreetMap Nominatim.
package geocode

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kilianp07/crisistriage/core/errs"
	coregeo "github.com/kilianp07/crisistriage/core/geocode"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/infra/logger"
)

// DefaultUserAgent identifies the service to Nominatim, which rejects
// anonymous clients.
const DefaultUserAgent = "emergency-triage-system"

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Nominatim resolves location text with the /search endpoint.
type Nominatim struct {
	http *resty.Client
	log  logger.Logger
}

var _ coregeo.Geocoder = (*Nominatim)(nil)

// NewNominatim creates a client for baseURL.
func NewNominatim(baseURL, userAgent string, timeout time.Duration, log logger.Logger) *Nominatim {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.New("geocode")
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	return &Nominatim{http: client, log: log}
}

// Geocode returns the first match for text. An empty result is not an error.
func (n *Nominatim) Geocode(ctx context.Context, text string) (model.Location, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return coregeo.NotFound(text), nil
	}
	var places []place
	resp, err := n.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"q": text, "format": "json", "limit": "1"}).
		SetResult(&places).
		Get("/search")
	if err != nil {
		return model.Location{}, fmt.Errorf("%w: nominatim: %v", errs.ErrCollaboratorUnavailable, err)
	}
	if resp.IsError() {
		return model.Location{}, fmt.Errorf("%w: nominatim status %d", errs.ErrCollaboratorUnavailable, resp.StatusCode())
	}
	if len(places) == 0 {
		n.log.Warnf("could not geocode location %q", text)
		return coregeo.NotFound(text), nil
	}
	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return model.Location{}, fmt.Errorf("%w: latitude %q", errs.ErrMalformedOutput, p.Lat)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return model.Location{}, fmt.Errorf("%w: longitude %q", errs.ErrMalformedOutput, p.Lon)
	}
	n.log.Infof("geocoded %q to %s", text, p.DisplayName)
	return coregeo.Found(text, p.DisplayName, lat, lon), nil
}
