package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/geo"
	"github.com/kilianp07/crisistriage/core/llm"
	"github.com/kilianp07/crisistriage/core/logger"
	"github.com/kilianp07/crisistriage/core/model"
)

//go:embed system_prompt.md
var systemPrompt string

//go:embed match_prompt.md
var matchPromptTemplate string

const defaultMaxLogLength = 200

// neutralScore replaces component scores the model leaves out.
const neutralScore = 0.5

// AIMatcher ranks resources by asking a language model. It only ever sends
// verified resources and accepts recommendations for resources it sent.
type AIMatcher struct {
	generator llm.Generator
	logger    logger.Logger
	maxLogLen int
}

// NewAIMatcher returns an AIMatcher backed by gen.
func NewAIMatcher(gen llm.Generator, log logger.Logger, maxLogLength int) (*AIMatcher, error) {
	if gen == nil || log == nil {
		return nil, fmt.Errorf("matching: nil parameter provided to NewAIMatcher")
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &AIMatcher{generator: gen, logger: log, maxLogLen: maxLogLength}, nil
}

type aiLocation struct {
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type aiNeed struct {
	Type       model.NeedType `json:"type"`
	Confidence float64        `json:"confidence"`
}

type aiRequest struct {
	RequestID      string     `json:"request_id"`
	Needs          []aiNeed   `json:"needs"`
	PeopleAffected *int       `json:"people_affected"`
	Location       aiLocation `json:"location"`
	UrgencyScore   float64    `json:"urgency_score"`
	Confidence     float64    `json:"confidence"`
}

type aiResource struct {
	ResourceID          string             `json:"resource_id"`
	Name                string             `json:"name"`
	Type                model.ResourceType `json:"type"`
	Services            []model.NeedType   `json:"services"`
	Location            aiLocation         `json:"location"`
	Availability        string             `json:"availability"`
	Capacity            int                `json:"capacity"`
	ResponseTimeMinutes int                `json:"response_time_minutes"`
	Verified            bool               `json:"verified"`
}

type aiComponentScores struct {
	Suitability  *float64 `json:"suitability"`
	Availability *float64 `json:"availability"`
	Capacity     *float64 `json:"capacity"`
	Distance     *float64 `json:"distance"`
}

type aiRecommendation struct {
	ResourceID      string             `json:"resource_id"`
	FinalScore      *float64           `json:"final_score"`
	ComponentScores *aiComponentScores `json:"component_scores"`
	Reasoning       []string           `json:"reasoning"`
	TradeOffs       []string           `json:"trade_offs"`
	Confidence      string             `json:"confidence"`
}

type aiResponse struct {
	Recommendations     *[]aiRecommendation `json:"recommendations"`
	HumanActionRequired *bool               `json:"human_action_required"`
	Warnings            []string            `json:"warnings"`
}

// Match asks the model to rank resources. Unverified resources are never sent.
// Output that violates the response schema yields no matches and an error
// wrapping errs.ErrMalformedOutput.
func (m *AIMatcher) Match(ctx context.Context, info model.ExtractedInformation, resources []model.Resource, maxMatches int) ([]model.ResourceMatch, error) {
	matches, _, err := m.MatchWithWarnings(ctx, info, resources, maxMatches)
	return matches, err
}

// MatchWithWarnings is Match plus the warnings reported by the model.
func (m *AIMatcher) MatchWithWarnings(ctx context.Context, info model.ExtractedInformation, resources []model.Resource, maxMatches int) ([]model.ResourceMatch, []string, error) {
	verified := make(map[string]model.Resource, len(resources))
	registry := make([]aiResource, 0, len(resources))
	for _, r := range resources {
		if !r.Verified {
			continue
		}
		verified[r.ID] = r
		registry = append(registry, toAIResource(r))
	}
	if len(registry) == 0 {
		return nil, nil, nil
	}

	prompt, err := buildMatchPrompt(info, registry, maxMatches)
	if err != nil {
		return nil, nil, err
	}
	m.logger.Debugw("ai matching request", map[string]any{
		"resources":      len(registry),
		"prompt_length":  utf8.RuneCountInString(prompt),
		"prompt_preview": truncateForLog(prompt, m.maxLogLen),
	})

	raw, err := m.generator.GenerateContent(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ai matching: %v", errs.ErrCollaboratorUnavailable, err)
	}
	m.logger.Debugw("ai matching response", map[string]any{
		"response_length":  utf8.RuneCountInString(raw),
		"response_preview": truncateForLog(raw, m.maxLogLen),
	})

	resp, err := parseAIResponse(raw)
	if err != nil {
		return nil, nil, err
	}

	out := make([]model.ResourceMatch, 0, len(*resp.Recommendations))
	seen := make(map[string]bool)
	for _, rec := range *resp.Recommendations {
		r, ok := verified[rec.ResourceID]
		if !ok {
			m.logger.Warnf("ai matching: dropping recommendation for unknown resource %q", rec.ResourceID)
			continue
		}
		if seen[rec.ResourceID] {
			continue
		}
		seen[rec.ResourceID] = true
		out = append(out, toMatch(r, rec, info))
	}
	Rank(out)
	return truncate(out, maxMatches), resp.Warnings, nil
}

func buildMatchPrompt(info model.ExtractedInformation, registry []aiResource, maxMatches int) (string, error) {
	req := aiRequest{
		RequestID:      "PENDING",
		Needs:          make([]aiNeed, 0, len(info.Needs)),
		PeopleAffected: info.PeopleAffected,
		UrgencyScore:   info.UrgencyScore,
		Confidence:     info.ExtractionConfidence,
	}
	for _, n := range info.Needs {
		req.Needs = append(req.Needs, aiNeed{Type: n.Type, Confidence: n.Confidence})
	}
	if info.Location != nil {
		req.Location = aiLocation{Address: info.Location.Address, Latitude: info.Location.Latitude, Longitude: info.Location.Longitude}
	}
	reqJSON, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal request payload: %w", err)
	}
	resJSON, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal resource registry: %w", err)
	}
	if maxMatches <= 0 {
		maxMatches = len(registry)
	}
	return llm.Fill(matchPromptTemplate, map[string]string{
		"REQUEST_JSON":   string(reqJSON),
		"RESOURCES_JSON": string(resJSON),
		"MAX_MATCHES":    strconv.Itoa(maxMatches),
	}), nil
}

func toAIResource(r model.Resource) aiResource {
	lat, lon := r.Location.Latitude, r.Location.Longitude
	availability := "unavailable"
	if r.Availability > 0 {
		availability = "available"
	}
	return aiResource{
		ResourceID:          r.ID,
		Name:                r.Name,
		Type:                r.Type,
		Services:            r.Capabilities,
		Location:            aiLocation{Address: r.Location.Address, Latitude: &lat, Longitude: &lon},
		Availability:        availability,
		Capacity:            r.Availability,
		ResponseTimeMinutes: r.ResponseTimeMinutes,
		Verified:            r.Verified,
	}
}

// parseAIResponse decodes and validates the model output. Values of the wrong
// type or outside [0,1] are rejected rather than coerced.
func parseAIResponse(raw string) (aiResponse, error) {
	var resp aiResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &resp); err != nil {
		return aiResponse{}, fmt.Errorf("%w: decode ai matching response: %v", errs.ErrMalformedOutput, err)
	}
	if resp.Recommendations == nil {
		return aiResponse{}, fmt.Errorf("%w: missing recommendations", errs.ErrMalformedOutput)
	}
	if resp.HumanActionRequired != nil && !*resp.HumanActionRequired {
		return aiResponse{}, fmt.Errorf("%w: response claims no human action is required", errs.ErrMalformedOutput)
	}
	for i, rec := range *resp.Recommendations {
		if strings.TrimSpace(rec.ResourceID) == "" {
			return aiResponse{}, fmt.Errorf("%w: recommendation %d has no resource_id", errs.ErrMalformedOutput, i)
		}
		if rec.FinalScore == nil || !unit(*rec.FinalScore) {
			return aiResponse{}, fmt.Errorf("%w: recommendation %s has invalid final_score", errs.ErrMalformedOutput, rec.ResourceID)
		}
		if cs := rec.ComponentScores; cs != nil {
			for _, v := range []*float64{cs.Suitability, cs.Availability, cs.Capacity, cs.Distance} {
				if v != nil && !unit(*v) {
					return aiResponse{}, fmt.Errorf("%w: recommendation %s has component score %v outside [0,1]", errs.ErrMalformedOutput, rec.ResourceID, *v)
				}
			}
		}
		switch rec.Confidence {
		case "", "high", "medium", "low":
		default:
			return aiResponse{}, fmt.Errorf("%w: recommendation %s has unknown confidence %q", errs.ErrMalformedOutput, rec.ResourceID, rec.Confidence)
		}
	}
	return resp, nil
}

func toMatch(r model.Resource, rec aiRecommendation, info model.ExtractedInformation) model.ResourceMatch {
	cs := aiComponentScores{}
	if rec.ComponentScores != nil {
		cs = *rec.ComponentScores
	}
	reasoning := strings.Join(rec.Reasoning, "; ")
	f := model.MatchingFactors{
		Suitability:             orNeutral(cs.Suitability),
		SuitabilityExplanation:  "AI: " + reasoning,
		Availability:            orNeutral(cs.Availability),
		AvailabilityExplanation: "AI: Resource availability assessed",
		Capacity:                orNeutral(cs.Capacity),
		CapacityExplanation:     "AI: Capacity match assessed",
		Distance:                orNeutral(cs.Distance),
		DistanceExplanation:     "AI: Distance factor assessed",
	}
	var dist *float64
	if lat, lon, ok := info.Location.Coordinates(); ok {
		d := geo.DistanceKM(geo.Point{Lat: r.Location.Latitude, Lon: r.Location.Longitude}, geo.Point{Lat: lat, Lon: lon})
		dist = &d
	}
	tradeOffs := rec.TradeOffs
	if tradeOffs == nil {
		tradeOffs = []string{}
	}
	return model.ResourceMatch{
		ResourceID:              r.ID,
		ResourceName:            r.Name,
		ResourceType:            r.Type,
		MatchScore:              geo.Round(*rec.FinalScore, 3),
		Factors:                 f,
		DistanceKM:              dist,
		EstimatedArrivalMinutes: EstimateArrival(r, dist),
		OverallExplanation:      "AI-Enhanced: " + reasoning,
		TradeOffs:               tradeOffs,
		ConfidenceLevel:         confidenceLevel(rec.Confidence),
	}
}

func confidenceLevel(c string) float64 {
	switch c {
	case "high":
		return 0.8
	case "medium":
		return 0.6
	default:
		return 0.4
	}
}

func orNeutral(v *float64) float64 {
	if v == nil {
		return neutralScore
	}
	return *v
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func truncateForLog(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
