// Package matching ranks registry resources against the extracted needs of a
// request.
package matching

import (
	"context"
	"sort"

	"github.com/kilianp07/crisistriage/core/geo"
	"github.com/kilianp07/crisistriage/core/model"
)

// Matcher ranks candidate resources for a request.
type Matcher interface {
	Match(ctx context.Context, info model.ExtractedInformation, resources []model.Resource, maxMatches int) ([]model.ResourceMatch, error)
}

// RuleMatcher scores resources with the deterministic weighted factors.
type RuleMatcher struct {
	Weights Weights
}

// NewRuleMatcher returns a RuleMatcher using w. Invalid weights are rejected.
func NewRuleMatcher(w Weights) (*RuleMatcher, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &RuleMatcher{Weights: w}, nil
}

// Match scores every resource, discards the unsuitable ones and returns at
// most maxMatches results ranked best first. A maxMatches of zero or less
// returns all suitable resources.
func (m *RuleMatcher) Match(_ context.Context, info model.ExtractedInformation, resources []model.Resource, maxMatches int) ([]model.ResourceMatch, error) {
	out := make([]model.ResourceMatch, 0, len(resources))
	for _, r := range resources {
		if match, ok := m.score(r, info); ok {
			out = append(out, match)
		}
	}
	Rank(out)
	return truncate(out, maxMatches), nil
}

func (m *RuleMatcher) score(r model.Resource, info model.ExtractedInformation) (model.ResourceMatch, bool) {
	f, dist := Factors(r, info)
	if f.Suitability == 0 {
		return model.ResourceMatch{}, false
	}
	raw := m.Weights.Score(f)
	return model.ResourceMatch{
		ResourceID:              r.ID,
		ResourceName:            r.Name,
		ResourceType:            r.Type,
		MatchScore:              geo.Round(raw, 3),
		Factors:                 f,
		DistanceKM:              dist,
		EstimatedArrivalMinutes: EstimateArrival(r, dist),
		OverallExplanation:      Explain(raw, f),
		TradeOffs:               TradeOffs(f),
		ConfidenceLevel:         Confidence(info.ExtractionConfidence, f),
	}, true
}

// Rank orders matches by score descending, then by estimated arrival
// ascending with unknown arrivals last, then by resource id.
func Rank(matches []model.ResourceMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		switch {
		case a.EstimatedArrivalMinutes != nil && b.EstimatedArrivalMinutes == nil:
			return true
		case a.EstimatedArrivalMinutes == nil && b.EstimatedArrivalMinutes != nil:
			return false
		case a.EstimatedArrivalMinutes != nil && *a.EstimatedArrivalMinutes != *b.EstimatedArrivalMinutes:
			return *a.EstimatedArrivalMinutes < *b.EstimatedArrivalMinutes
		}
		return a.ResourceID < b.ResourceID
	})
}

func truncate(matches []model.ResourceMatch, n int) []model.ResourceMatch {
	if n > 0 && len(matches) > n {
		return matches[:n]
	}
	return matches
}
