package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/crisistriage/core/errs"
	coregeo "github.com/kilianp07/crisistriage/core/geocode"
	"github.com/kilianp07/crisistriage/infra/logger"
)

func nominatimServer(t *testing.T, status int, body string, seen *http.Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = *r.Clone(context.Background())
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNominatimFound(t *testing.T) {
	var req http.Request
	srv := nominatimServer(t, http.StatusOK, `[{"lat":"40.7128","lon":"-74.0060","display_name":"New York, USA"}]`, &req)
	n := NewNominatim(srv.URL, "", time.Second, logger.NopLogger{})

	loc, err := n.Geocode(context.Background(), "  New York ")
	require.NoError(t, err)
	assert.True(t, loc.IsGeocoded)
	assert.Equal(t, coregeo.FoundConfidence, loc.Confidence)
	assert.Equal(t, "New York, USA", loc.Address)
	assert.Equal(t, "New York", loc.RawText)
	lat, lon, ok := loc.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 40.7128, lat, 1e-9)
	assert.InDelta(t, -74.006, lon, 1e-9)

	assert.Equal(t, "/search", req.URL.Path)
	assert.Equal(t, "New York", req.URL.Query().Get("q"))
	assert.Equal(t, "json", req.URL.Query().Get("format"))
	assert.Equal(t, "1", req.URL.Query().Get("limit"))
	assert.Equal(t, DefaultUserAgent, req.Header.Get("User-Agent"))
}

func TestNominatimNotFound(t *testing.T) {
	srv := nominatimServer(t, http.StatusOK, `[]`, nil)
	n := NewNominatim(srv.URL, "test-agent", time.Second, logger.NopLogger{})

	loc, err := n.Geocode(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.False(t, loc.IsGeocoded)
	assert.Equal(t, coregeo.NotFoundConfidence, loc.Confidence)
	assert.Equal(t, "Atlantis", loc.RawText)
}

func TestNominatimEmptyTextSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()
	loc, err := NewNominatim(srv.URL, "", time.Second, logger.NopLogger{}).Geocode(context.Background(), " ")
	require.NoError(t, err)
	assert.False(t, loc.IsGeocoded)
	assert.False(t, called)
}

func TestNominatimErrors(t *testing.T) {
	srv := nominatimServer(t, http.StatusTooManyRequests, `{"error":"rate limited"}`, nil)
	_, err := NewNominatim(srv.URL, "", time.Second, logger.NopLogger{}).Geocode(context.Background(), "Paris")
	assert.ErrorIs(t, err, errs.ErrCollaboratorUnavailable)

	bad := nominatimServer(t, http.StatusOK, `[{"lat":"north","lon":"2.35","display_name":"Paris"}]`, nil)
	_, err = NewNominatim(bad.URL, "", time.Second, logger.NopLogger{}).Geocode(context.Background(), "Paris")
	assert.ErrorIs(t, err, errs.ErrMalformedOutput)

	_, err = NewNominatim("http://127.0.0.1:1", "", 200*time.Millisecond, logger.NopLogger{}).Geocode(context.Background(), "Paris")
	assert.ErrorIs(t, err, errs.ErrCollaboratorUnavailable)
}
