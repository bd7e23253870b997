package config

import (
	"time"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/matching"
)

// MatchingConfig selects the matching path and its scoring weights.
type MatchingConfig struct {
	Weights          matching.Weights `json:"weights"`
	AIEnabled        bool             `json:"ai_enabled"`
	AIMinConfidence  float64          `json:"ai_min_confidence"`
	MaxMatches       int              `json:"max_matches"`
	AITimeoutSeconds int              `json:"ai_timeout_seconds"`
}

// SetDefaults applies default values for missing fields.
func (c *MatchingConfig) SetDefaults() {
	if c.Weights == (matching.Weights{}) {
		c.Weights = matching.DefaultWeights()
	}
	if c.AIMinConfidence == 0 {
		c.AIMinConfidence = 0.6
	}
	if c.MaxMatches <= 0 {
		c.MaxMatches = 5
	}
	if c.AITimeoutSeconds <= 0 {
		c.AITimeoutSeconds = 30
	}
}

// Validate checks the weights and thresholds.
func (c MatchingConfig) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.AIMinConfidence < 0 || c.AIMinConfidence > 1 {
		return errs.Validationf("ai_min_confidence must be within [0,1]")
	}
	return nil
}

// Orchestrator converts the section into matching.Config.
func (c MatchingConfig) Orchestrator() matching.Config {
	return matching.Config{
		AIEnabled:       c.AIEnabled,
		AIMinConfidence: c.AIMinConfidence,
		AITimeout:       seconds(c.AITimeoutSeconds),
		MaxMatches:      c.MaxMatches,
		Weights:         c.Weights,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
