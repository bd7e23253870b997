package model

// MatchingFactors holds the four component scores of a match and their
// human-readable explanations.
type MatchingFactors struct {
	Suitability             float64 `json:"suitability_score"`
	SuitabilityExplanation  string  `json:"suitability_explanation"`
	Availability            float64 `json:"availability_score"`
	AvailabilityExplanation string  `json:"availability_explanation"`
	Capacity                float64 `json:"capacity_score"`
	CapacityExplanation     string  `json:"capacity_explanation"`
	Distance                float64 `json:"distance_score"`
	DistanceExplanation     string  `json:"distance_explanation"`
}

// Factor names used in explanations.
const (
	FactorSuitability  = "suitability"
	FactorAvailability = "availability"
	FactorCapacity     = "capacity"
	FactorDistance     = "distance"
)

// Named returns the factor scores in fixed order.
func (f MatchingFactors) Named() []NamedScore {
	return []NamedScore{
		{Name: FactorSuitability, Score: f.Suitability},
		{Name: FactorAvailability, Score: f.Availability},
		{Name: FactorCapacity, Score: f.Capacity},
		{Name: FactorDistance, Score: f.Distance},
	}
}

// Min returns the lowest of the four factor scores.
func (f MatchingFactors) Min() float64 {
	m := f.Suitability
	for _, n := range f.Named()[1:] {
		if n.Score < m {
			m = n.Score
		}
	}
	return m
}

// NamedScore pairs a factor name with its score.
type NamedScore struct {
	Name  string
	Score float64
}

// ResourceMatch is one ranked recommendation for a request.
type ResourceMatch struct {
	ResourceID              string          `json:"resource_id"`
	ResourceName            string          `json:"resource_name"`
	ResourceType            ResourceType    `json:"resource_type"`
	MatchScore              float64         `json:"match_score"`
	Factors                 MatchingFactors `json:"matching_factors"`
	DistanceKM              *float64        `json:"distance_km,omitempty"`
	EstimatedArrivalMinutes *int            `json:"estimated_arrival_minutes,omitempty"`
	OverallExplanation      string          `json:"overall_explanation"`
	TradeOffs               []string        `json:"trade_offs"`
	ConfidenceLevel         float64         `json:"confidence_level"`
}
