package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_DeliversAndAnswersPing(t *testing.T) {
	hub, _ := newTestHub(10)
	upgrader := websocket.Upgrader{}
	served := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = hub.Serve("org-1", conn, time.Second)
		close(served)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.registry.Count("org-1") == 1 }, time.Second, 10*time.Millisecond)

	_, err = hub.Publish(context.Background(), "org-1", "New volunteer applied for your event: Beach Day")
	require.NoError(t, err)

	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	kind, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, "New volunteer applied for your event: Beach Day", string(data))

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("ping")))
	_, data, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(data))

	require.NoError(t, client.Close())
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not notice the disconnect")
	}
	assert.Equal(t, 0, hub.registry.Count("org-1"))
}
