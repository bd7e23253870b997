package matching

import (
	"fmt"
	"strings"

	"github.com/kilianp07/crisistriage/core/geo"
	"github.com/kilianp07/crisistriage/core/model"
)

// Factor is a single scored dimension of a match.
type Factor struct {
	Score       float64
	Explanation string
}

// Suitability scores how well the resource addresses the primary need.
func Suitability(r model.Resource, info model.ExtractedInformation) Factor {
	primary, ok := info.PrimaryNeed()
	if !ok {
		return Factor{0.5, "No specific need identified, using general suitability"}
	}
	need := primary.Type
	if typeSuits(r.Type, need) {
		if r.HasCapability(need) {
			return Factor{1.0, fmt.Sprintf("Perfectly suited: %s directly matches %s need with specific capability", r.Type, need)}
		}
		return Factor{0.8, fmt.Sprintf("Well suited: %s matches %s need type", r.Type, need)}
	}
	var covered []string
	for _, n := range info.NeedTypes() {
		if r.HasCapability(n) {
			covered = append(covered, string(n))
		}
	}
	if len(covered) > 0 {
		return Factor{0.4, fmt.Sprintf("Partially suited: Can address %s but not primary need", strings.Join(covered, ", "))}
	}
	return Factor{0.0, fmt.Sprintf("Not suitable: %s doesn't match %s need", r.Type, need)}
}

// Availability scores the share of the resource's capacity that is free.
func Availability(r model.Resource) Factor {
	if r.Availability <= 0 || r.Capacity <= 0 {
		return Factor{0.0, "Not available: Currently fully deployed"}
	}
	ratio := clamp01(float64(r.Availability) / float64(r.Capacity))
	free := fmt.Sprintf("%d/%d capacity", r.Availability, r.Capacity)
	switch {
	case ratio >= 0.8:
		return Factor{ratio, "Highly available: " + free + " free"}
	case ratio >= 0.5:
		return Factor{ratio, "Available: " + free + " free"}
	case ratio >= 0.2:
		return Factor{ratio, "Limited availability: Only " + free + " free"}
	default:
		return Factor{ratio, "Severely limited: Only " + free + " remaining"}
	}
}

// Capacity scores whether the free capacity covers the people affected.
func Capacity(r model.Resource, info model.ExtractedInformation) Factor {
	people := info.People()
	switch {
	case r.Availability >= people:
		return Factor{1.0, fmt.Sprintf("Sufficient capacity: Can serve %d people (need: %d)", r.Availability, people)}
	case r.Availability > 0:
		return Factor{float64(r.Availability) / float64(people), fmt.Sprintf("Partial capacity: Can serve %d people (need: %d)", r.Availability, people)}
	default:
		return Factor{0.0, "No capacity available"}
	}
}

// Distance scores proximity between the resource base and the request. The
// returned distance is nil when the request location is unknown.
func Distance(r model.Resource, info model.ExtractedInformation) (Factor, *float64) {
	lat, lon, ok := info.Location.Coordinates()
	if !ok {
		return Factor{0.5, "Location unknown: Cannot calculate distance"}, nil
	}
	d := geo.DistanceKM(
		geo.Point{Lat: r.Location.Latitude, Lon: r.Location.Longitude},
		geo.Point{Lat: lat, Lon: lon},
	)
	switch {
	case d <= 5:
		return Factor{1.0, fmt.Sprintf("Very close: %.1f km away", d)}, &d
	case d <= 20:
		return Factor{0.8, fmt.Sprintf("Nearby: %.1f km away", d)}, &d
	case d <= 50:
		return Factor{0.5, fmt.Sprintf("Moderate distance: %.1f km away", d)}, &d
	case d <= 100:
		return Factor{0.3, fmt.Sprintf("Far: %.1f km away", d)}, &d
	default:
		return Factor{0.1, fmt.Sprintf("Very far: %.1f km away", d)}, &d
	}
}

// Factors computes all four factors for a resource.
func Factors(r model.Resource, info model.ExtractedInformation) (model.MatchingFactors, *float64) {
	s := Suitability(r, info)
	a := Availability(r)
	c := Capacity(r, info)
	d, dist := Distance(r, info)
	return model.MatchingFactors{
		Suitability:             s.Score,
		SuitabilityExplanation:  s.Explanation,
		Availability:            a.Score,
		AvailabilityExplanation: a.Explanation,
		Capacity:                c.Score,
		CapacityExplanation:     c.Explanation,
		Distance:                d.Score,
		DistanceExplanation:     d.Explanation,
	}, dist
}

// EstimateArrival adds travel minutes to the base response time, assuming
// one minute per kilometre.
func EstimateArrival(r model.Resource, dist *float64) *int {
	if dist == nil {
		return nil
	}
	base := r.ResponseTimeMinutes
	if base == 0 {
		base = model.DefaultResponseTimeMinutes
	}
	m := int(float64(base) + *dist)
	return &m
}

// Explain builds the overall explanation for a match.
func Explain(score float64, f model.MatchingFactors) string {
	quality := "poor"
	switch {
	case score >= 0.8:
		quality = "excellent"
	case score >= 0.6:
		quality = "good"
	case score >= 0.4:
		quality = "fair"
	}
	named := f.Named()
	strongest, weakest := named[0], named[0]
	for _, n := range named[1:] {
		if n.Score > strongest.Score {
			strongest = n
		}
		if n.Score < weakest.Score {
			weakest = n
		}
	}
	out := fmt.Sprintf("This is a %s match (score: %.2f). Strongest factor: %s (%.2f).", quality, score, strongest.Name, strongest.Score)
	if weakest.Score < 0.4 {
		out += fmt.Sprintf(" Limitation: %s (%.2f).", weakest.Name, weakest.Score)
	}
	return out
}

// TradeOffs lists the compromises a dispatcher accepts with this match.
func TradeOffs(f model.MatchingFactors) []string {
	out := []string{}
	if f.Suitability >= 0.8 && f.Distance < 0.5 {
		out = append(out, "High suitability but longer distance - faster response vs better match")
	}
	if f.Distance >= 0.8 && f.Suitability < 0.6 {
		out = append(out, "Close distance but lower suitability - speed vs capability")
	}
	if f.Availability < 0.5 {
		out = append(out, "Limited availability - may need to wait or use partial capacity")
	}
	if f.Capacity < 0.7 {
		out = append(out, "Insufficient capacity - may need multiple resources or prioritization")
	}
	return out
}

// Confidence derives the match confidence from the extraction confidence,
// discounted when any factor is weak.
func Confidence(extraction float64, f model.MatchingFactors) float64 {
	c := extraction
	switch m := f.Min(); {
	case m < 0.3:
		c *= 0.7
	case m < 0.5:
		c *= 0.85
	}
	return geo.Round(c, 2)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
