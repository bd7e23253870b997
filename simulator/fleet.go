package main

import (
	"fmt"
	"io"
	"time"

	"github.com/kilianp07/crisistriage/core/geo"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/internal/fixture"
)

// LoadUnits builds one simulated unit per fixture resource. When only is not
// empty, just the listed resources are simulated and each must exist.
func LoadUnits(r io.Reader, cfg Config, strat AckStrategy) ([]SimulatedUnit, error) {
	resources, err := fixture.Decode(r, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	selected, err := selectResources(resources, cfg.Units)
	if err != nil {
		return nil, err
	}
	units := make([]SimulatedUnit, 0, len(selected))
	for _, res := range selected {
		units = append(units, unitFromResource(res, cfg, strat))
	}
	return units, nil
}

func selectResources(resources []model.Resource, only []string) ([]model.Resource, error) {
	if len(only) == 0 {
		return resources, nil
	}
	byID := make(map[string]model.Resource, len(resources))
	for _, r := range resources {
		byID[r.ID] = r
	}
	out := make([]model.Resource, 0, len(only))
	for _, id := range only {
		r, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown resource %s", id)
		}
		out = append(out, r)
	}
	return out, nil
}

func basePoint(r model.Resource) geo.Point {
	return geo.Point{Lat: r.Location.Latitude, Lon: r.Location.Longitude}
}
