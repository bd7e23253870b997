package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/llm"
	"github.com/kilianp07/crisistriage/core/logger"
	"github.com/kilianp07/crisistriage/core/model"
)

//go:embed extraction_prompt.md
var extractionPrompt string

const systemInstruction = "You are an expert emergency triage assistant. Provide accurate, structured analysis with transparent reasoning."

// DefaultExtractionConfidence applies when the model omits its own estimate.
const DefaultExtractionConfidence = 0.8

// LLMExtractor extracts information by prompting a language model.
type LLMExtractor struct {
	generator llm.Generator
	weights   UrgencyWeights
	logger    logger.Logger
}

// NewLLMExtractor validates the urgency weights and returns an extractor.
func NewLLMExtractor(gen llm.Generator, weights UrgencyWeights, log logger.Logger) (*LLMExtractor, error) {
	if gen == nil || log == nil {
		return nil, fmt.Errorf("extract: nil parameter provided to NewLLMExtractor")
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &LLMExtractor{generator: gen, weights: weights, logger: log}, nil
}

type rawNeed struct {
	NeedType    string  `json:"need_type"`
	Quantity    *int    `json:"quantity"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

type rawLocation struct {
	RawText    string  `json:"raw_text"`
	Address    *string `json:"address"`
	Confidence float64 `json:"confidence"`
}

type rawExtraction struct {
	Needs                 []rawNeed                    `json:"needs"`
	Location              *rawLocation                 `json:"location"`
	PeopleAffected        *int                         `json:"people_affected"`
	VulnerablePopulations []model.VulnerablePopulation `json:"vulnerable_populations"`
	UrgencyFactors        *model.UrgencyFactors        `json:"urgency_factors"`
	UrgencyLevel          string                       `json:"urgency_level"`
	OverallExplanation    string                       `json:"overall_explanation"`
	LanguageDetected      *string                      `json:"language_detected"`
	ExtractionConfidence  *float64                     `json:"extraction_confidence"`
}

// Extract implements Extractor.
func (e *LLMExtractor) Extract(ctx context.Context, message string, mc MessageContext) (model.ExtractedInformation, error) {
	if strings.TrimSpace(message) == "" {
		return model.ExtractedInformation{}, errs.Validationf("message must not be empty")
	}
	source := string(mc.Source)
	if source == "" {
		source = string(model.SourceOther)
	}
	prompt := llm.Fill(extractionPrompt, map[string]string{"MESSAGE": message, "SOURCE": source})
	e.logger.Debugw("extraction request", map[string]any{
		"source":         source,
		"message_length": utf8.RuneCountInString(message),
	})

	raw, err := e.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return model.ExtractedInformation{}, fmt.Errorf("%w: extraction: %v", errs.ErrCollaboratorUnavailable, err)
	}
	info, err := e.parse(raw)
	if err != nil {
		return model.ExtractedInformation{}, err
	}
	e.logger.Infof("extraction completed: urgency=%s score=%.2f", info.UrgencyLevel, info.UrgencyScore)
	return info, nil
}

func (e *LLMExtractor) parse(raw string) (model.ExtractedInformation, error) {
	var r rawExtraction
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &r); err != nil {
		return model.ExtractedInformation{}, fmt.Errorf("%w: decode extraction: %v", errs.ErrMalformedOutput, err)
	}
	if r.UrgencyFactors == nil {
		return model.ExtractedInformation{}, fmt.Errorf("%w: extraction has no urgency factors", errs.ErrMalformedOutput)
	}

	factors := *r.UrgencyFactors
	factors.MedicalRisk = clamp01(factors.MedicalRisk)
	factors.VulnerablePop = clamp01(factors.VulnerablePop)
	factors.TimeSensitivity = clamp01(factors.TimeSensitivity)
	factors.MessageConfidence = clamp01(factors.MessageConfidence)
	factors.Severity = clamp01(factors.Severity)

	info := model.ExtractedInformation{
		Needs:                 make([]model.ExtractedNeed, 0, len(r.Needs)),
		PeopleAffected:        r.PeopleAffected,
		VulnerablePopulations: r.VulnerablePopulations,
		UrgencyFactors:        factors,
		UrgencyScore:          e.weights.Score(factors),
		OverallExplanation:    r.OverallExplanation,
		ExtractionConfidence:  DefaultExtractionConfidence,
	}
	if info.VulnerablePopulations == nil {
		info.VulnerablePopulations = []model.VulnerablePopulation{}
	}
	for _, n := range r.Needs {
		info.Needs = append(info.Needs, model.ExtractedNeed{
			Type:        model.ParseNeedType(n.NeedType),
			Quantity:    n.Quantity,
			Description: n.Description,
			Confidence:  clamp01(n.Confidence),
		})
	}
	if r.Location != nil && strings.TrimSpace(r.Location.RawText) != "" {
		loc := &model.Location{RawText: r.Location.RawText, Confidence: clamp01(r.Location.Confidence)}
		if r.Location.Address != nil {
			loc.Address = *r.Location.Address
		}
		info.Location = loc
	}
	if level := model.UrgencyLevel(r.UrgencyLevel); level.Valid() {
		info.UrgencyLevel = level
	} else {
		info.UrgencyLevel = model.UrgencyForScore(info.UrgencyScore)
	}
	if r.LanguageDetected != nil {
		info.LanguageDetected = *r.LanguageDetected
	}
	if r.ExtractionConfidence != nil {
		info.ExtractionConfidence = clamp01(*r.ExtractionConfidence)
	}
	return info, nil
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
