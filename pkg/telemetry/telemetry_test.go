package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	require.NotNil(t, hub)
	assert.NotNil(t, hub.subscribers)
	assert.False(t, hub.closed)
}

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	defer unsub()

	event := Event{
		Type:           EventExchangeOK,
		ConversationID: "conv_001",
		SessionID:      "test-session",
		Data:           map[string]any{"latency_ms": int64(1200)},
	}

	hub.Publish(event)

	select {
	case received := <-ch:
		assert.Equal(t, EventExchangeOK, received.Type)
		assert.Equal(t, "conv_001", received.ConversationID)
		assert.Equal(t, "test-session", received.SessionID)
		assert.False(t, received.Timestamp.IsZero())
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestHub_MultipleSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch1, unsub1 := hub.Subscribe()
	defer unsub1()
	ch2, unsub2 := hub.Subscribe()
	defer unsub2()

	hub.Publish(Event{Type: EventConversationCompleted})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			assert.Equal(t, EventConversationCompleted, received.Type)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	unsub()

	// Channel should be closed
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestHub_UnsubscribeTwiceIsSafe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	_, unsub := hub.Subscribe()
	unsub()
	unsub() // Should not panic
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	ch, _ := hub.Subscribe()

	hub.Close()

	// Channel should be closed
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after hub close")

	// Publish should be no-op after close
	hub.Publish(Event{Type: EventRunStarted}) // Should not panic

	// Subscribe after close returns a closed channel
	after, _ := hub.Subscribe()
	_, ok = <-after
	assert.False(t, ok)
}

func TestHub_DropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, unsub := hub.Subscribe()
	defer unsub()

	// Overflow the subscriber buffer without reading; publishes must not block.
	for i := 0; i < 200; i++ {
		hub.Publish(Event{Type: EventExchangeStarted, Data: map[string]any{"i": i}})
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			assert.Greater(t, count, 0, "buffered events should be delivered")
			assert.Less(t, count, 200, "overflow events should be dropped")
			return
		}
	}
}

func TestHub_NilHubIsSafe(t *testing.T) {
	var hub *Hub
	hub.Publish(Event{Type: EventRunStarted}) // Should not panic
}
