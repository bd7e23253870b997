package model

import "time"

// EmergencyMessage is an inbound message awaiting triage.
type EmergencyMessage struct {
	Message     string         `json:"message"`
	Source      MessageSource  `json:"source"`
	PhoneNumber string         `json:"phone_number,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Override records a dispatcher choosing a resource other than the top
// recommendation.
type Override struct {
	Timestamp           time.Time `json:"timestamp"`
	DispatcherID        string    `json:"dispatcher_id"`
	RecommendedResource string    `json:"recommended_resource"`
	SelectedResource    string    `json:"selected_resource"`
	Reason              string    `json:"reason"`
}

// EmergencyRequest is the persisted record of a triaged message.
type EmergencyRequest struct {
	ID                    string                `json:"request_id"`
	OriginalMessage       string                `json:"original_message"`
	Source                MessageSource         `json:"source"`
	PhoneNumber           string                `json:"phone_number,omitempty"`
	ReceivedAt            time.Time             `json:"received_at"`
	ExtractedInfo         *ExtractedInformation `json:"extracted_info,omitempty"`
	MatchedResources      []ResourceMatch       `json:"matched_resources"`
	MatchSource           string                `json:"match_source,omitempty"`
	Status                RequestStatus         `json:"status"`
	AssignedResourceID    string                `json:"assigned_resource_id,omitempty"`
	DispatcherNotes       string                `json:"dispatcher_notes,omitempty"`
	DispatcherID          string                `json:"dispatcher_id,omitempty"`
	HumanOverrides        []Override            `json:"human_overrides"`
	DispatcherConfirmed   bool                  `json:"dispatcher_confirmed"`
	ConfirmationTimestamp *time.Time            `json:"confirmation_timestamp,omitempty"`
	ProcessingStartedAt   *time.Time            `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time            `json:"processing_completed_at,omitempty"`
	DispatchedAt          *time.Time            `json:"dispatched_at,omitempty"`
	CompletedAt           *time.Time            `json:"completed_at,omitempty"`
	ProcessingTimeSeconds float64               `json:"processing_time_seconds"`
	Warnings              []string              `json:"warnings,omitempty"`
	Metadata              map[string]any        `json:"metadata,omitempty"`
}

// TopMatch returns the highest-ranked match, if any.
func (r EmergencyRequest) TopMatch() (ResourceMatch, bool) {
	if len(r.MatchedResources) == 0 {
		return ResourceMatch{}, false
	}
	return r.MatchedResources[0], true
}

// Urgency returns the extracted urgency level, or an empty level when the
// request has not been triaged.
func (r EmergencyRequest) Urgency() UrgencyLevel {
	if r.ExtractedInfo == nil {
		return ""
	}
	return r.ExtractedInfo.UrgencyLevel
}

// People returns the number of people affected, defaulting to one.
func (r EmergencyRequest) People() int {
	if r.ExtractedInfo == nil {
		return 1
	}
	return r.ExtractedInfo.People()
}

// AssignmentConsistent reports whether an assigned resource is present
// exactly when the request has been dispatched or completed afterwards.
func (r EmergencyRequest) AssignmentConsistent() bool {
	dispatched := r.Status == StatusDispatched || r.Status == StatusCompleted
	return dispatched == (r.AssignedResourceID != "")
}

// Clone returns a deep copy of the request's slices and maps so callers can
// mutate it without affecting shared state.
func (r EmergencyRequest) Clone() EmergencyRequest {
	out := r
	if r.ExtractedInfo != nil {
		info := *r.ExtractedInfo
		info.Needs = append([]ExtractedNeed(nil), r.ExtractedInfo.Needs...)
		info.VulnerablePopulations = append([]VulnerablePopulation(nil), r.ExtractedInfo.VulnerablePopulations...)
		if r.ExtractedInfo.Location != nil {
			loc := *r.ExtractedInfo.Location
			info.Location = &loc
		}
		out.ExtractedInfo = &info
	}
	out.MatchedResources = append([]ResourceMatch(nil), r.MatchedResources...)
	out.HumanOverrides = append([]Override(nil), r.HumanOverrides...)
	out.Warnings = append([]string(nil), r.Warnings...)
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// DashboardStats summarises the request and resource registries.
type DashboardStats struct {
	TotalRequests            int     `json:"total_requests"`
	PendingRequests          int     `json:"pending_requests"`
	ProcessingRequests       int     `json:"processing_requests"`
	DispatchedRequests       int     `json:"dispatched_requests"`
	CompletedRequests        int     `json:"completed_requests"`
	CancelledRequests        int     `json:"cancelled_requests"`
	AverageTriageTimeSeconds float64 `json:"average_triage_time_seconds"`
	CriticalRequests         int     `json:"critical_requests"`
	HighUrgencyRequests      int     `json:"high_urgency_requests"`
	ResourcesAvailable       int     `json:"resources_available"`
	ResourcesDeployed        int     `json:"resources_deployed"`
	OverrideRate             float64 `json:"override_rate"`
}
