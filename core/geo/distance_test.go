package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKMZero(t *testing.T) {
	p := Point{Lat: 52.52, Lon: 13.405}
	assert.Equal(t, 0.0, DistanceKM(p, p))
}

func TestDistanceKMSymmetric(t *testing.T) {
	a := Point{Lat: 40.7128, Lon: -74.0060}
	b := Point{Lat: 34.0522, Lon: -118.2437}
	assert.Equal(t, DistanceKM(a, b), DistanceKM(b, a))
	assert.InDelta(t, 3935.7, DistanceKM(a, b), 1.0)
}

func TestDistanceKMShort(t *testing.T) {
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 0.018, Lon: 0}
	assert.Equal(t, 2.0, DistanceKM(a, b))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.123, Round(0.12345, 3))
	assert.Equal(t, 1.5, Round(1.499999, 2))
}
