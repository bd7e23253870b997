package config

import (
	"github.com/kilianp07/crisistriage/core/extract"
)

// ExtractionConfig controls message extraction.
type ExtractionConfig struct {
	Weights         extract.UrgencyWeights `json:"weights"`
	KeywordFallback *bool                  `json:"keyword_fallback"`
	TimeoutSeconds  int                    `json:"timeout_seconds"`
}

// SetDefaults applies default values for missing fields.
func (c *ExtractionConfig) SetDefaults() {
	if c.Weights == (extract.UrgencyWeights{}) {
		c.Weights = extract.DefaultUrgencyWeights()
	}
	if c.KeywordFallback == nil {
		on := true
		c.KeywordFallback = &on
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

// Validate checks the urgency weights.
func (c ExtractionConfig) Validate() error {
	return c.Weights.Validate()
}

// FallbackEnabled reports whether keyword extraction backs up the LLM.
func (c ExtractionConfig) FallbackEnabled() bool {
	return c.KeywordFallback == nil || *c.KeywordFallback
}
