package model

// ExtractedNeed is one need identified in a message.
type ExtractedNeed struct {
	Type        NeedType `json:"need_type"`
	Quantity    *int     `json:"quantity,omitempty"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
}

// Location is the place a message refers to. Coordinates are only
// meaningful when both Latitude and Longitude are set.
type Location struct {
	RawText    string   `json:"raw_text"`
	Address    string   `json:"address,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Confidence float64  `json:"confidence"`
	IsGeocoded bool     `json:"is_geocoded"`
}

// Coordinates returns the latitude and longitude when both are known.
func (l *Location) Coordinates() (lat, lon float64, ok bool) {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return 0, 0, false
	}
	return *l.Latitude, *l.Longitude, true
}

// VulnerablePopulation is a group at elevated risk mentioned in a message.
type VulnerablePopulation struct {
	Type            string `json:"type"`
	Count           *int   `json:"count,omitempty"`
	MentionedInText string `json:"mentioned_in_text"`
}

// UrgencyFactors holds the component scores behind the urgency score.
// Every score lies in [0,1].
type UrgencyFactors struct {
	MedicalRisk                  float64 `json:"medical_risk_score"`
	MedicalRiskExplanation       string  `json:"medical_risk_explanation"`
	VulnerablePop                float64 `json:"vulnerable_pop_score"`
	VulnerablePopExplanation     string  `json:"vulnerable_pop_explanation"`
	TimeSensitivity              float64 `json:"time_sensitivity_score"`
	TimeSensitivityExplanation   string  `json:"time_sensitivity_explanation"`
	MessageConfidence            float64 `json:"message_confidence_score"`
	MessageConfidenceExplanation string  `json:"message_confidence_explanation"`
	Severity                     float64 `json:"severity_score"`
	SeverityExplanation          string  `json:"severity_explanation"`
}

// ExtractedInformation is the structured reading of a free-text message.
type ExtractedInformation struct {
	Needs                 []ExtractedNeed        `json:"needs"`
	Location              *Location              `json:"location,omitempty"`
	PeopleAffected        *int                   `json:"people_affected,omitempty"`
	VulnerablePopulations []VulnerablePopulation `json:"vulnerable_populations"`
	UrgencyFactors        UrgencyFactors         `json:"urgency_factors"`
	UrgencyLevel          UrgencyLevel           `json:"urgency_level"`
	UrgencyScore          float64                `json:"urgency_score"`
	OverallExplanation    string                 `json:"overall_explanation"`
	LanguageDetected      string                 `json:"language_detected"`
	ExtractionConfidence  float64                `json:"extraction_confidence"`
}

// People returns the number of people affected, defaulting to one.
func (e ExtractedInformation) People() int {
	if e.PeopleAffected == nil || *e.PeopleAffected < 1 {
		return 1
	}
	return *e.PeopleAffected
}

// PrimaryNeed returns the need with the highest confidence. The first need
// wins ties.
func (e ExtractedInformation) PrimaryNeed() (ExtractedNeed, bool) {
	if len(e.Needs) == 0 {
		return ExtractedNeed{}, false
	}
	best := e.Needs[0]
	for _, n := range e.Needs[1:] {
		if n.Confidence > best.Confidence {
			best = n
		}
	}
	return best, true
}

// NeedTypes returns the distinct need types in order of first appearance.
func (e ExtractedInformation) NeedTypes() []NeedType {
	seen := make(map[NeedType]bool, len(e.Needs))
	out := make([]NeedType, 0, len(e.Needs))
	for _, n := range e.Needs {
		if seen[n.Type] {
			continue
		}
		seen[n.Type] = true
		out = append(out, n.Type)
	}
	return out
}
