package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/crisistriage/core/events"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/core/notify"
	"github.com/kilianp07/crisistriage/infra/logger"
	"github.com/kilianp07/crisistriage/internal/eventbus"
)

func dispatched(resourceID string) events.DispatchedEvent {
	return events.DispatchedEvent{
		RequestID:    "req-1",
		ResourceID:   resourceID,
		DispatcherID: "disp-1",
		People:       2,
		Urgency:      model.UrgencyHigh,
		At:           time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestDispatchNotifierAcknowledged(t *testing.T) {
	mock := NewMockNotifier()
	d := NewDispatchNotifier(mock, nil, time.Second, logger.NopLogger{})

	res := d.Notify(context.Background(), dispatched("amb-1"))
	assert.True(t, res.Acknowledged)
	assert.NoError(t, res.Err)

	n, ok := mock.Sent("amb-1")
	require.True(t, ok)
	assert.Equal(t, "req-1", n.RequestID)
	assert.Equal(t, 2, n.People)
	assert.Equal(t, model.UrgencyHigh, n.Urgency)
	assert.Equal(t, "disp-1", n.DispatcherID)
	assert.Equal(t, n.NoticeID, res.NoticeID)
}

func TestDispatchNotifierMissingAck(t *testing.T) {
	mock := NewMockNotifier()
	mock.NoAck["amb-1"] = true
	d := NewDispatchNotifier(mock, nil, time.Second, logger.NopLogger{})

	res := d.Notify(context.Background(), dispatched("amb-1"))
	assert.False(t, res.Acknowledged)
	assert.ErrorIs(t, res.Err, notify.ErrAckTimeout)
}

func TestDispatchNotifierSendFailure(t *testing.T) {
	mock := NewMockNotifier()
	mock.FailIDs["amb-1"] = true
	d := NewDispatchNotifier(mock, nil, time.Second, logger.NopLogger{})

	res := d.Notify(context.Background(), dispatched("amb-1"))
	assert.False(t, res.Acknowledged)
	assert.Error(t, res.Err)
	assert.Empty(t, res.NoticeID)
}

func TestDispatchNotifierRunFromBus(t *testing.T) {
	bus := eventbus.New(eventbus.WithBuffer(16))
	defer bus.Close()
	out := bus.Subscribe()
	mock := NewMockNotifier()
	d := NewDispatchNotifier(mock, bus, time.Second, logger.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	// wait for Run to subscribe before publishing
	require.Eventually(t, func() bool {
		bus.Publish(dispatched("amb-2"))
		_, ok := mock.Sent("amb-2")
		return ok
	}, time.Second, 10*time.Millisecond)

	var notice events.NoticeEvent
	require.Eventually(t, func() bool {
		for {
			select {
			case ev := <-out:
				if n, ok := ev.(events.NoticeEvent); ok {
					notice = n
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "amb-2", notice.ResourceID)
	assert.True(t, notice.Acknowledged)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notifier did not stop")
	}
}
