package main

import (
	"math"
	"sync"

	"github.com/kilianp07/crisistriage/core/geo"
)

const kmPerDegree = 111.32

// Position tracks a unit moving around its base.
type Position struct {
	mu       sync.Mutex
	base     geo.Point
	current  geo.Point
	radiusKM float64
}

// NewPosition starts a unit at its base. A radius of zero lets it roam freely.
func NewPosition(base geo.Point, radiusKM float64) *Position {
	return &Position{base: base, current: base, radiusKM: radiusKM}
}

// Current returns the last known position.
func (p *Position) Current() geo.Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Drift moves the unit by up to maxKM in a random direction. A move leaving
// the radius around the base is replaced by a step back toward the base.
func (p *Position) Drift(maxKM float64, rnd func() float64) geo.Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	if maxKM <= 0 {
		return p.current
	}
	angle := rnd() * 2 * math.Pi
	dist := rnd() * maxKM
	next := offset(p.current, dist*math.Cos(angle), dist*math.Sin(angle))
	if p.radiusKM > 0 && geo.DistanceKM(p.base, next) > p.radiusKM {
		next = geo.Point{
			Lat: p.current.Lat + (p.base.Lat-p.current.Lat)/2,
			Lon: p.current.Lon + (p.base.Lon-p.current.Lon)/2,
		}
	}
	p.current = next
	return next
}

// offset moves pt by the given kilometres north and east.
func offset(pt geo.Point, northKM, eastKM float64) geo.Point {
	lat := pt.Lat + northKM/kmPerDegree
	cos := math.Cos(lat * math.Pi / 180)
	if math.Abs(cos) < 1e-6 {
		return geo.Point{Lat: lat, Lon: pt.Lon}
	}
	return geo.Point{Lat: lat, Lon: pt.Lon + eastKM/(kmPerDegree*cos)}
}
