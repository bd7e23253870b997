package extract

import (
	"context"
	"strings"

	"github.com/kilianp07/crisistriage/core/model"
)

var (
	criticalKeywords = []string{"dying", "death", "critical", "emergency", "life-threatening", "severe"}
	highKeywords     = []string{"urgent", "soon", "quickly", "asap", "immediately"}
	medicalKeywords  = []string{"injured", "hurt", "bleeding", "pain", "sick", "medical"}
)

// KeywordConfidence is the extraction confidence reported by keyword
// extraction.
const KeywordConfidence = 0.3

// KeywordExtractor derives a coarse urgency reading from keyword presence.
// It never fails and always asks for manual review.
type KeywordExtractor struct{}

// Extract implements Extractor.
func (KeywordExtractor) Extract(_ context.Context, message string, _ MessageContext) (model.ExtractedInformation, error) {
	text := strings.ToLower(message)
	critical := containsAny(text, criticalKeywords)
	high := containsAny(text, highKeywords)
	medical := containsAny(text, medicalKeywords)

	level, score := model.UrgencyMedium, 0.50
	switch {
	case critical:
		level, score = model.UrgencyCritical, 0.85
	case high || medical:
		level, score = model.UrgencyHigh, 0.65
	}

	factors := model.UrgencyFactors{
		MedicalRisk:                  0.3,
		MedicalRiskExplanation:       "Fallback extraction - keyword-based",
		VulnerablePop:                0.5,
		VulnerablePopExplanation:     "Unable to determine - fallback mode",
		TimeSensitivity:              0.5,
		TimeSensitivityExplanation:   "Based on urgency keywords",
		MessageConfidence:            0.3,
		MessageConfidenceExplanation: "Low confidence - LLM extraction failed",
		Severity:                     0.6,
		SeverityExplanation:          "Estimated from message content",
	}
	if medical {
		factors.MedicalRisk = 0.7
	}
	if high {
		factors.TimeSensitivity = 0.7
	}

	return model.ExtractedInformation{
		Needs: []model.ExtractedNeed{{
			Type:        model.NeedOther,
			Description: "Unable to extract specific needs - requires manual review",
			Confidence:  0.3,
		}},
		VulnerablePopulations: []model.VulnerablePopulation{},
		UrgencyFactors:        factors,
		UrgencyLevel:          level,
		UrgencyScore:          score,
		OverallExplanation:    "Fallback extraction used. Manual review required for accurate triage.",
		ExtractionConfidence:  KeywordConfidence,
	}, nil
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
