// Package notify defines how dispatch notices reach resource units.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/crisistriage/core/model"
)

// ErrAckTimeout is returned when no acknowledgment is received before the timeout.
var ErrAckTimeout = errors.New("timeout waiting for ack")

// Notice instructs a resource unit to respond to a request.
type Notice struct {
	NoticeID     string             `json:"notice_id"`
	RequestID    string             `json:"request_id"`
	ResourceID   string             `json:"resource_id"`
	People       int                `json:"people"`
	Urgency      model.UrgencyLevel `json:"urgency,omitempty"`
	DispatcherID string             `json:"dispatcher_id"`
	Timestamp    int64              `json:"timestamp"`
}

// Notifier delivers dispatch notices and tracks their acknowledgment.
type Notifier interface {
	// SendNotice delivers n to its resource unit and returns the notice
	// identifier used to track the acknowledgment.
	SendNotice(ctx context.Context, n Notice) (noticeID string, err error)

	// WaitForAck waits for an acknowledgment for the provided notice
	// identifier or until the timeout expires.
	WaitForAck(noticeID string, timeout time.Duration) (bool, error)
}
