// Package extract turns free-text emergency messages into structured
// ExtractedInformation records.
package extract

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/geo"
	"github.com/kilianp07/crisistriage/core/model"
)

// MessageContext carries metadata about the inbound message.
type MessageContext struct {
	Source      model.MessageSource
	PhoneNumber string
}

// Extractor reads a message and returns its structured information.
type Extractor interface {
	Extract(ctx context.Context, message string, mc MessageContext) (model.ExtractedInformation, error)
}

// UrgencyWeights controls how urgency factors combine into the urgency score.
type UrgencyWeights struct {
	MedicalRisk       float64 `json:"medical_risk"`
	VulnerablePop     float64 `json:"vulnerable_pop"`
	TimeSensitivity   float64 `json:"time_sensitivity"`
	MessageConfidence float64 `json:"message_confidence"`
	Severity          float64 `json:"severity"`
}

// DefaultUrgencyWeights returns the 35/25/20/10/10 split.
func DefaultUrgencyWeights() UrgencyWeights {
	return UrgencyWeights{
		MedicalRisk:       0.35,
		VulnerablePop:     0.25,
		TimeSensitivity:   0.20,
		MessageConfidence: 0.10,
		Severity:          0.10,
	}
}

func (w UrgencyWeights) values() []float64 {
	return []float64{w.MedicalRisk, w.VulnerablePop, w.TimeSensitivity, w.MessageConfidence, w.Severity}
}

// Validate ensures the weights are non-negative and sum to one.
func (w UrgencyWeights) Validate() error {
	vals := w.values()
	if floats.Min(vals) < 0 {
		return errs.Validationf("urgency weights must not be negative")
	}
	if sum := floats.Sum(vals); math.Abs(sum-1) > 0.01 {
		return errs.Validationf("urgency weights must sum to 1.0, got %.3f", sum)
	}
	return nil
}

// Score returns the weighted urgency score rounded to three decimals.
func (w UrgencyWeights) Score(f model.UrgencyFactors) float64 {
	factors := []float64{f.MedicalRisk, f.VulnerablePop, f.TimeSensitivity, f.MessageConfidence, f.Severity}
	return geo.Round(floats.Dot(w.values(), factors), 3)
}
