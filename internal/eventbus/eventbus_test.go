package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatched struct{ requestID string }

func TestFanOutToEverySubscriber(t *testing.T) {
	bus := New()
	metrics, notifier := bus.Subscribe(), bus.Subscribe()
	bus.Publish(dispatched{requestID: "req-1"})

	assert.Equal(t, dispatched{requestID: "req-1"}, <-metrics)
	assert.Equal(t, dispatched{requestID: "req-1"}, <-notifier)

	bus.Unsubscribe(metrics)
	_, open := <-metrics
	assert.False(t, open)
	bus.Publish(dispatched{requestID: "req-2"})
	assert.Equal(t, dispatched{requestID: "req-2"}, <-notifier)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()
	bus.Close()
	bus.Close()

	_, open := <-sub
	assert.False(t, open)
	assert.NotPanics(t, func() { bus.Unsubscribe(sub) })
	assert.NotPanics(t, func() { bus.Publish("late") })

	_, open = <-bus.Subscribe()
	assert.False(t, open, "subscribing after close yields a closed channel")
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	var mu sync.Mutex
	drops := 0
	bus := New(WithBuffer(1), WithDropHandler(func() {
		mu.Lock()
		drops++
		mu.Unlock()
	}))
	sub := bus.Subscribe()
	for i := 1; i <= 3; i++ {
		bus.Publish(i)
	}

	assert.Equal(t, uint64(2), bus.Dropped())
	assert.Equal(t, 2, drops)
	assert.Equal(t, 1, <-sub)
}

func TestWithBufferIgnoresNonPositive(t *testing.T) {
	bus := New(WithBuffer(0))
	sub := bus.Subscribe()
	for i := 0; i < defaultBuffer; i++ {
		bus.Publish(i)
	}
	require.Zero(t, bus.Dropped())
	assert.Len(t, sub, defaultBuffer)
}

func TestTypedBus(t *testing.T) {
	bus := NewTyped[string]()
	sub := bus.Subscribe()
	bus.Publish("amb-1")
	assert.Equal(t, "amb-1", <-sub)
}
