package metrics

import (
	"time"

	"github.com/kilianp07/crisistriage/core/model"
)

// TriageEvent summarises one processed emergency message.
type TriageEvent struct {
	RequestID         string
	Urgency           model.UrgencyLevel
	UrgencyScore      float64
	Source            string
	MatchCount        int
	TopScore          float64
	RequiresConfirm   bool
	ProcessingSeconds float64
	Time              time.Time
}

// MetricsSink records triage outcomes for observability purposes.
type MetricsSink interface {
	RecordTriage(ev TriageEvent) error
}

// AllocationEvent captures an attempt to reserve resource capacity.
type AllocationEvent struct {
	RequestID  string
	ResourceID string
	People     int
	// Result is "allocated", "conflict" or "error".
	Result string
	Time   time.Time
}

// AllocationRecorder records capacity reservations.
type AllocationRecorder interface {
	RecordAllocation(ev AllocationEvent) error
}

// OverrideEvent records a dispatcher overriding the top recommendation.
type OverrideEvent struct {
	RequestID           string
	DispatcherID        string
	RecommendedResource string
	SelectedResource    string
	Reason              string
	Time                time.Time
}

// OverrideRecorder records dispatcher overrides.
type OverrideRecorder interface {
	RecordOverride(ev OverrideEvent) error
}

// StatusEvent records a request lifecycle transition.
type StatusEvent struct {
	RequestID string
	From      model.RequestStatus
	To        model.RequestStatus
	Urgency   model.UrgencyLevel
	Time      time.Time
}

// StatusRecorder records lifecycle transitions.
type StatusRecorder interface {
	RecordStatus(ev StatusEvent) error
}

// MatchingPathEvent records which matching strategy ran.
type MatchingPathEvent struct {
	Action string
	Error  string
	Time   time.Time
}

// MatchingPathRecorder records matching path decisions.
type MatchingPathRecorder interface {
	RecordMatchingPath(ev MatchingPathEvent) error
}

// ResourceLevelEvent is a snapshot of a resource's remaining availability.
type ResourceLevelEvent struct {
	ResourceID   string
	Availability int
	Status       model.ResourceStatus
	Time         time.Time
}

// ResourceLevelRecorder records resource availability snapshots.
type ResourceLevelRecorder interface {
	RecordResourceLevel(ev ResourceLevelEvent) error
}

// NoticeEvent records the delivery of a dispatch notice to a resource unit.
type NoticeEvent struct {
	RequestID    string
	ResourceID   string
	Acknowledged bool
	Latency      time.Duration
	Error        string
	Time         time.Time
}

// NoticeRecorder records dispatch notice deliveries.
type NoticeRecorder interface {
	RecordNotice(ev NoticeEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordTriage(TriageEvent) error { return nil }

func (NopSink) RecordAllocation(AllocationEvent) error       { return nil }
func (NopSink) RecordOverride(OverrideEvent) error           { return nil }
func (NopSink) RecordStatus(StatusEvent) error               { return nil }
func (NopSink) RecordMatchingPath(MatchingPathEvent) error   { return nil }
func (NopSink) RecordResourceLevel(ResourceLevelEvent) error { return nil }
func (NopSink) RecordNotice(NoticeEvent) error               { return nil }
