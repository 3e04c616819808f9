package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tara-tutor-be/internal/dto"
	"tara-tutor-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) dto.WsOutbound {
	t.Helper()
	select {
	case data := <-ch:
		var out dto.WsOutbound
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return dto.WsOutbound{}
	}
}

func TestHub_BroadcastTargetsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	a1 := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 4)}
	a2 := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 4)}
	b := &Client{Hub: hub, SessionID: "b", Send: make(chan []byte, 4)}
	hub.register <- a1
	hub.register <- a2
	hub.register <- b
	require.Eventually(t, func() bool { return hub.SessionCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast("a", dto.WsOutbound{Type: "session_reset", SessionId: "a"})

	assert.Equal(t, "session_reset", receive(t, a1.Send).Type)
	assert.Equal(t, "session_reset", receive(t, a2.Send).Type)
	assert.Empty(t, b.Send)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	c := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 1)}
	hub.register <- c
	hub.unregister <- c

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	assert.Eventually(t, func() bool { return hub.SessionCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_FullBufferDropsFrame(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	c := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 1)}
	hub.clients["a"] = []*Client{c}

	hub.Broadcast("a", dto.WsOutbound{Type: "delta", Text: "1"})
	hub.Broadcast("a", dto.WsOutbound{Type: "delta", Text: "2"})

	assert.Equal(t, "1", receive(t, c.Send).Text)
	assert.Empty(t, c.Send)
}

func TestHub_StoppedHubReleasesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	c := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 1)}
	require.True(t, hub.attach(c))

	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	detached := make(chan struct{})
	go func() {
		hub.detach(c)
		close(detached)
	}()
	select {
	case <-detached:
	case <-time.After(time.Second):
		t.Fatal("detach blocked on a stopped hub")
	}
	assert.False(t, hub.attach(&Client{Hub: hub, SessionID: "b", Send: make(chan []byte, 1)}))
}
