package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/eventboard/internal/model"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return mockUserClient(hub, 1)
}

func mockUserClient(hub *Hub, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   nil,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)

	hub.Register(c1)
	hub.Register(c2)

	require.Equal(t, 2, hub.ClientCount())

	hub.Unregister(c1)

	require.Equal(t, 1, hub.ClientCount())

	hub.Unregister(c2)

	assert.Zero(t, hub.ClientCount())
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	assert.Zero(t, hub.ClientCount())
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	msg := NewMessage("event", "updated", 42, map[string]any{"title": "Seminar"})
	hub.Broadcast(msg)

	// Check both clients received the message
	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, "event_updated", got.Type)
			assert.Equal(t, "event", got.Entity)
			assert.Equal(t, int64(42), got.ID)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	msg := NewMessage("event", "deleted", 1, nil)
	hub.Broadcast(msg)
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("test", "fill", int64(i), nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("test", "dropped", 999, nil))

	// Drain to verify buffer was full
	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	assert.Equal(t, sendBufferSize, count)

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("announcement", "created", 5, nil)
	assert.Equal(t, "announcement_created", msg.Type)
	assert.Equal(t, "announcement", msg.Entity)
	assert.Equal(t, "created", msg.Action)
	assert.Equal(t, int64(5), msg.ID)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	// Spawn goroutines that register, broadcast, and unregister concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.Broadcast(NewMessage("test", "concurrent", 0, nil))
			// Drain any messages
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	assert.Zero(t, hub.ClientCount(), "clients left after concurrent test")
}

func TestPublishTargetsRecipientOnly(t *testing.T) {
	hub := NewHub(slog.Default())

	alice := mockUserClient(hub, 7)
	aliceTab := mockUserClient(hub, 7)
	bob := mockUserClient(hub, 9)
	for _, c := range []*Client{alice, aliceTab, bob} {
		hub.Register(c)
	}

	hub.Publish(7, model.Notification{ID: 3, EventID: 11, Kind: model.NotifKindAnnouncement, Title: "Hi"})

	for _, c := range []*Client{alice, aliceTab} {
		select {
		case data := <-c.send:
			var got Message
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, "notification_created", got.Type)
			assert.Equal(t, int64(3), got.ID)
			assert.EqualValues(t, model.NotifKindAnnouncement, got.Extra["kind"])
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case <-bob.send:
		t.Error("bob should not receive alice's notification")
	default:
	}

	for _, c := range []*Client{alice, aliceTab, bob} {
		hub.Unregister(c)
	}
}
