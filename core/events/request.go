package events

import (
	"time"

	"github.com/kilianp07/crisistriage/core/model"
)

// RequestEvent is published whenever a request changes status.
type RequestEvent struct {
	RequestID string
	From      model.RequestStatus
	To        model.RequestStatus
	Urgency   model.UrgencyLevel
	At        time.Time
}

// DispatchedEvent is published after a dispatcher confirms a resource and its
// capacity has been reserved.
type DispatchedEvent struct {
	RequestID    string
	ResourceID   string
	DispatcherID string
	People       int
	Urgency      model.UrgencyLevel
	At           time.Time
}

// OverrideEvent is published when the selected resource differs from the top
// recommendation.
type OverrideEvent struct {
	RequestID string
	Override  model.Override
}

// ResourceStatusEvent is published when a unit reports its own availability.
type ResourceStatusEvent struct {
	ResourceID   string
	Availability int
	Status       model.ResourceStatus
	At           time.Time
}

// TriagedEvent is published once a message has been extracted, matched and
// stored.
type TriagedEvent struct {
	RequestID            string
	Urgency              model.UrgencyLevel
	UrgencyScore         float64
	MatchSource          string
	MatchCount           int
	TopScore             float64
	RequiresConfirmation bool
	ProcessingSeconds    float64
	At                   time.Time
}

// AllocationFailedEvent is published when capacity could not be reserved
// for a confirmed dispatch.
type AllocationFailedEvent struct {
	RequestID  string
	ResourceID string
	People     int
	Err        error
	At         time.Time
}

// NoticeEvent is published after a dispatch notice was sent to a resource
// unit and its acknowledgment awaited.
type NoticeEvent struct {
	RequestID    string
	ResourceID   string
	NoticeID     string
	Acknowledged bool
	Latency      time.Duration
	Err          error
	At           time.Time
}
