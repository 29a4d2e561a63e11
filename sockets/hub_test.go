package sockets

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) Event {
	t.Helper()
	select {
	case data, ok := <-ch:
		require.True(t, ok, "channel closed before an event arrived")
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
		return Event{}
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	first, cancelFirst := hub.Subscribe()
	defer cancelFirst()
	second, cancelSecond := hub.Subscribe()
	defer cancelSecond()

	hub.Publish("task-created", map[string]string{"title": "hello"})

	for _, ch := range []<-chan []byte{first, second} {
		event := receive(t, ch)
		assert.Equal(t, "task-created", event.Event)
		payload, ok := event.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "hello", payload["title"])
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	cancel()

	// Channel is closed; nothing was delivered.
	_, ok := <-ch
	assert.False(t, ok)

	// Publishing afterwards must not panic on the gone subscriber.
	hub.Publish("task-updated", nil)
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	hub.Publish("task-created", nil)

	ch, cancel := hub.Subscribe()
	defer cancel()

	select {
	case <-ch:
		t.Fatal("a subscriber connecting after publish must not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Overflow the buffer; every publish past it is dropped for the
		// slow subscriber, none may block.
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Publish("task-updated", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Close()

	_, ok := <-ch
	assert.False(t, ok)

	// Publish and Subscribe after shutdown are inert.
	hub.Publish("task-updated", nil)
	late, lateCancel := hub.Subscribe()
	defer lateCancel()
	_, ok = <-late
	assert.False(t, ok)
}

func TestDoubleCancelIsSafe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	_, cancel := hub.Subscribe()
	cancel()
	cancel()
}
