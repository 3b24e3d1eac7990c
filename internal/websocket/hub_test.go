package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"moviemania/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub, cancel
}

func receive(t *testing.T, ch <-chan []byte) ([]byte, bool) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		return msg, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hub")
		return nil, false
	}
}

func TestHubBroadcastsToClients(t *testing.T) {
	hub, _ := startHub(t)

	a := &client{hub: hub, send: make(chan []byte, 4), username: "a"}
	b := &client{hub: hub, send: make(chan []byte, 4), username: "b"}
	require.True(t, hub.join(a))
	require.True(t, hub.join(b))

	hub.Publish(models.Notification{Timestamp: 1700000000000, Message: "Movie added: Dune (by a)"})

	for _, c := range []*client{a, b} {
		msg, ok := receive(t, c.send)
		require.True(t, ok)
		var n models.Notification
		require.NoError(t, json.Unmarshal(msg, &n))
		assert.Equal(t, "Movie added: Dune (by a)", n.Message)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	// slow already has a full buffer, so the first broadcast cannot reach it.
	slow := &client{hub: hub, send: make(chan []byte, 1), username: "slow"}
	slow.send <- []byte("pending")
	watcher := &client{hub: hub, send: make(chan []byte, 4), username: "watcher"}
	require.True(t, hub.join(slow))
	require.True(t, hub.join(watcher))

	hub.Publish(models.Notification{Timestamp: 1, Message: "first"})
	hub.Publish(models.Notification{Timestamp: 2, Message: "second"})

	// Once watcher has the second entry the hub is done with the first one.
	receive(t, watcher.send)
	receive(t, watcher.send)

	msg, ok := receive(t, slow.send)
	require.True(t, ok)
	assert.Equal(t, "pending", string(msg))
	_, ok = receive(t, slow.send)
	assert.False(t, ok, "send channel closed when the client cannot keep up")
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	hub, cancel := startHub(t)

	c := &client{hub: hub, send: make(chan []byte, 1), username: "c"}
	require.True(t, hub.join(c))

	cancel()
	_, ok := receive(t, c.send)
	assert.False(t, ok)

	<-hub.done
	assert.False(t, hub.join(&client{hub: hub, send: make(chan []byte)}), "no joins after shutdown")
}

func TestLeaveUnregisters(t *testing.T) {
	hub, _ := startHub(t)

	c := &client{hub: hub, send: make(chan []byte, 1), username: "c"}
	require.True(t, hub.join(c))
	hub.leave(c)

	_, ok := receive(t, c.send)
	assert.False(t, ok)
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	var buf bytes.Buffer
	hub := NewHub()
	hub.logger = zerolog.New(&buf)

	// Run is not started, so nothing drains the queue.
	for i := range cap(hub.broadcast) + 1 {
		hub.Publish(models.Notification{Timestamp: int64(i), Message: "m"})
	}

	assert.Len(t, hub.broadcast, cap(hub.broadcast))
	assert.Contains(t, buf.String(), "broadcast queue full")
}

func TestHandleNotificationsRejectsPlainRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	hub := NewHub()
	hub.logger = zerolog.New(&buf)

	r := gin.New()
	r.GET("/ws", HandleNotifications(hub))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, buf.String(), "websocket upgrade")
}
