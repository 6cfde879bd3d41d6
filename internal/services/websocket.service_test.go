package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"nigrani/internal/models"
)

func TestHubBroadcastsSnapshots(t *testing.T) {
	hub := NewWebSocketHub(zaptest.NewLogger(t))
	defer hub.Stop()

	a := NewClientConnection("a", "alice", nil)
	b := NewClientConnection("b", "bob", nil)
	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	snap := models.Snapshot{ID: "snap-1"}
	snap.SetTimestamp(time.Now(), time.UTC)
	hub.PublishSnapshot(snap)

	for _, c := range []*ClientConnection{a, b} {
		select {
		case msg := <-c.Send:
			assert.Equal(t, "snapshot", msg.Type)
			got, ok := msg.Data.(models.Snapshot)
			require.True(t, ok)
			assert.Equal(t, "snap-1", got.ID)
		case <-time.After(time.Second):
			t.Fatalf("client %s got no message", c.ID)
		}
	}
}

func TestHubUnregisterClosesSendQueue(t *testing.T) {
	hub := NewWebSocketHub(zaptest.NewLogger(t))
	defer hub.Stop()

	c := NewClientConnection("c", "carol", nil)
	hub.Register(c)
	hub.Unregister("c")
	hub.Unregister("c")

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send queue was not closed")
	}
	assert.Zero(t, hub.ClientCount())
}

func TestHubStopDisconnectsClients(t *testing.T) {
	hub := NewWebSocketHub(zaptest.NewLogger(t))
	c := NewClientConnection("c", "carol", nil)
	hub.Register(c)

	hub.Stop()
	hub.Stop()

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send queue was not closed")
	}

	// Calls after Stop must not block.
	hub.Unregister("c")
	late := NewClientConnection("late", "", nil)
	hub.Register(late)
	_, ok := <-late.Send
	assert.False(t, ok)
}

func TestHubSendToSingleClient(t *testing.T) {
	hub := NewWebSocketHub(zaptest.NewLogger(t))
	defer hub.Stop()

	a := NewClientConnection("a", "alice", nil)
	b := NewClientConnection("b", "bob", nil)
	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	assert.True(t, hub.SendTo("a", WebSocketMessage{Type: "pong"}))
	assert.False(t, hub.SendTo("missing", WebSocketMessage{Type: "pong"}))

	msg := <-a.Send
	assert.Equal(t, "pong", msg.Type)
	assert.Empty(t, b.Send)
}
