package mqtt

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/crisistriage/core/events"
	coremon "github.com/kilianp07/crisistriage/core/monitoring"
	"github.com/kilianp07/crisistriage/core/notify"
	"github.com/kilianp07/crisistriage/infra/logger"
	"github.com/kilianp07/crisistriage/internal/eventbus"
)

// DispatchNotifier forwards confirmed dispatches to the assigned resource
// unit. A missing acknowledgment is reported but never reverts the dispatch.
type DispatchNotifier struct {
	notifier notify.Notifier
	bus      eventbus.EventBus
	timeout  time.Duration
	log      logger.Logger
	now      func() time.Time
}

// NewDispatchNotifier creates a notifier listening on bus.
func NewDispatchNotifier(n notify.Notifier, bus eventbus.EventBus, ackTimeout time.Duration, log logger.Logger) *DispatchNotifier {
	log = logger.OrNop(log)
	if ackTimeout <= 0 {
		ackTimeout = 10 * time.Second
	}
	return &DispatchNotifier{notifier: n, bus: bus, timeout: ackTimeout, log: log, now: time.Now}
}

// Run consumes DispatchedEvents until ctx is canceled or the bus closes.
// In-flight notices are awaited before returning.
func (d *DispatchNotifier) Run(ctx context.Context) {
	if d.bus == nil || d.notifier == nil {
		return
	}
	sub := d.bus.Subscribe()
	defer d.bus.Unsubscribe(sub)
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			e, ok := ev.(events.DispatchedEvent)
			if !ok {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer coremon.Recover()
				d.Notify(ctx, e)
			}()
		}
	}
}

// Notify sends the notice for e and waits for its acknowledgment.
func (d *DispatchNotifier) Notify(ctx context.Context, e events.DispatchedEvent) events.NoticeEvent {
	start := d.now()
	result := events.NoticeEvent{RequestID: e.RequestID, ResourceID: e.ResourceID}
	id, err := d.notifier.SendNotice(ctx, notify.Notice{
		RequestID:    e.RequestID,
		ResourceID:   e.ResourceID,
		People:       e.People,
		Urgency:      e.Urgency,
		DispatcherID: e.DispatcherID,
		Timestamp:    e.At.UnixMilli(),
	})
	if err != nil {
		d.log.Errorf("notice for request %s to %s failed: %v", e.RequestID, e.ResourceID, err)
		result.Err = err
	} else {
		result.NoticeID = id
		ok, err := d.notifier.WaitForAck(id, d.timeout)
		result.Acknowledged = ok && err == nil
		result.Err = err
		if !result.Acknowledged {
			d.log.Warnf("resource %s did not acknowledge notice %s: %v", e.ResourceID, id, err)
		} else {
			d.log.Infof("resource %s acknowledged request %s", e.ResourceID, e.RequestID)
		}
	}
	result.Latency = d.now().Sub(start)
	result.At = d.now()
	if d.bus != nil {
		d.bus.Publish(result)
	}
	return result
}
