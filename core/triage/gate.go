package triage

import (
	"fmt"

	"github.com/kilianp07/crisistriage/core/model"
)

const (
	// ConfirmConfidence is the extraction or match confidence below which a
	// dispatcher must confirm before anything is sent.
	ConfirmConfidence = 0.6
	// WeakMatchScore is the best-match score below which the match is
	// considered weak.
	WeakMatchScore = 0.5
	// WarnConfidence is the extraction confidence below which a warning is
	// raised.
	WarnConfidence = 0.7
	// ImmediateArrivalMinutes is the longest arrival still counted as an
	// immediate option for a critical request.
	ImmediateArrivalMinutes = 30
	// ConstrainedCapacity is the capacity score below which vulnerable
	// populations trigger a warning.
	ConstrainedCapacity = 0.7
)

// RequiresConfirmation reports whether a dispatcher must review the triage
// result before dispatch. Every critical request needs review.
func RequiresConfirmation(info model.ExtractedInformation, matches []model.ResourceMatch) bool {
	if info.UrgencyLevel == model.UrgencyCritical {
		return true
	}
	if info.ExtractionConfidence < ConfirmConfidence {
		return true
	}
	if len(matches) == 0 || matches[0].MatchScore < WeakMatchScore {
		return true
	}
	return matches[0].ConfidenceLevel < ConfirmConfidence
}

// Warnings lists the conditions a dispatcher should be alerted to.
func Warnings(info model.ExtractedInformation, matches []model.ResourceMatch) []string {
	warnings := []string{}
	if info.ExtractionConfidence < WarnConfidence {
		warnings = append(warnings, fmt.Sprintf(
			"Low extraction confidence (%.2f). Please verify extracted information manually.",
			info.ExtractionConfidence))
	}
	if info.Location == nil || !info.Location.IsGeocoded {
		warnings = append(warnings, "Location could not be precisely determined. Distance calculations may be inaccurate.")
	}
	if len(matches) == 0 {
		warnings = append(warnings, "No suitable resources found. Manual allocation required.")
	} else if matches[0].MatchScore < WeakMatchScore {
		warnings = append(warnings, fmt.Sprintf(
			"Best match has low score (%.2f). Consider alternative resources.",
			matches[0].MatchScore))
	}
	if info.UrgencyLevel == model.UrgencyCritical && !immediateOption(matches) {
		warnings = append(warnings, "CRITICAL: Life-threatening situation but no immediate resources available. Consider emergency alternatives.")
	}
	if len(info.VulnerablePopulations) > 0 && len(matches) > 0 && matches[0].Factors.Capacity < ConstrainedCapacity {
		warnings = append(warnings, "Vulnerable populations present with limited resource capacity. Prioritize accordingly.")
	}
	return warnings
}

// immediateOption reports whether the best match can arrive in time for a
// critical request. An unknown arrival time is not held against the match.
func immediateOption(matches []model.ResourceMatch) bool {
	if len(matches) == 0 {
		return false
	}
	eta := matches[0].EstimatedArrivalMinutes
	return eta == nil || *eta <= ImmediateArrivalMinutes
}
