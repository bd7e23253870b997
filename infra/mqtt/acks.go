package mqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/crisistriage/core/notify"
)

// pendingAcks tracks notices awaiting acknowledgment from their unit.
type pendingAcks struct {
	mu      sync.Mutex
	waiters map[string]chan struct{}
}

func newPendingAcks() *pendingAcks {
	return &pendingAcks{waiters: make(map[string]chan struct{})}
}

func (p *pendingAcks) add(noticeID string) {
	p.mu.Lock()
	p.waiters[noticeID] = make(chan struct{}, 1)
	p.mu.Unlock()
}

func (p *pendingAcks) drop(noticeID string) {
	p.mu.Lock()
	delete(p.waiters, noticeID)
	p.mu.Unlock()
}

// resolve reports whether noticeID was pending. Duplicate acks are ignored.
func (p *pendingAcks) resolve(noticeID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.waiters[noticeID]
	if !ok {
		return false
	}
	select {
	case ch <- struct{}{}:
	default:
	}
	return true
}

// wait blocks until noticeID is acknowledged or timeout elapses. The notice
// is forgotten either way.
func (p *pendingAcks) wait(noticeID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch, ok := p.waiters[noticeID]
	p.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("unknown notice %s", noticeID)
	}
	defer p.drop(noticeID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true, nil
	case <-timer.C:
		return false, fmt.Errorf("notice %s: %w", noticeID, notify.ErrAckTimeout)
	}
}
