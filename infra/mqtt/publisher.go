package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/crisistriage/core/notify"
)

// MockNotifier is an in-memory notifier used in tests and when MQTT is disabled.
type MockNotifier struct {
	Notices    map[string]notify.Notice
	FailIDs    map[string]bool
	NoAck      map[string]bool
	AckResults map[string]bool
	mu         sync.Mutex
}

var _ notify.Notifier = (*MockNotifier)(nil)

// NewMockNotifier creates a new MockNotifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		Notices:    make(map[string]notify.Notice),
		FailIDs:    make(map[string]bool),
		NoAck:      make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// SendNotice records the notice or returns an error if the resource is configured to fail.
func (m *MockNotifier) SendNotice(_ context.Context, n notify.Notice) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[n.ResourceID] {
		return "", fmt.Errorf("publish failed")
	}
	if n.NoticeID == "" {
		n.NoticeID = fmt.Sprintf("notice-%s-%s", n.RequestID, n.ResourceID)
	}
	m.Notices[n.ResourceID] = n
	m.AckResults[n.NoticeID] = !m.NoAck[n.ResourceID]
	return n.NoticeID, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockNotifier) WaitForAck(noticeID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[noticeID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("unknown notice %s", noticeID)
	}
	if !ok {
		return false, fmt.Errorf("notice %s: %w", noticeID, notify.ErrAckTimeout)
	}
	return true, nil
}

// Sent returns the notice delivered to resourceID, if any.
func (m *MockNotifier) Sent(resourceID string) (notify.Notice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.Notices[resourceID]
	return n, ok
}
