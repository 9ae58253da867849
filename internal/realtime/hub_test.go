package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard/internal/alerts"
)

func newHubServer(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// Wait for the server side to finish registration.
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, hub.ClientCount())

	return hub, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var message Message
	require.NoError(t, conn.ReadJSON(&message))
	return message
}

func TestHubBroadcastReachesClient(t *testing.T) {
	hub, conn := newHubServer(t)

	hub.Broadcast(Message{Event: EventAlertCreated, Data: map[string]any{"unread": 1}})

	message := readMessage(t, conn)
	require.Equal(t, EventAlertCreated, message.Event)
}

func TestHubPingControlGetsPong(t *testing.T) {
	_, conn := newHubServer(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	message := readMessage(t, conn)
	require.Equal(t, "pong", message.Event)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub, conn := newHubServer(t)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "server closed the connection")
	require.Equal(t, 0, hub.ClientCount())
}

func TestBridgeForwardsStoreEvents(t *testing.T) {
	hub, conn := newHubServer(t)
	bridge := NewBridge(hub)

	bridge.OnStoreEvent(alerts.Event{
		Type:   alerts.EventAdded,
		Record: &alerts.AlertRecord{ID: "a1", Kind: alerts.KindPhishingDetected},
		Unread: 1,
	})
	message := readMessage(t, conn)
	require.Equal(t, EventAlertCreated, message.Event)

	bridge.OnStoreEvent(alerts.Event{
		Type:       alerts.EventCleared,
		RemovedIDs: []string{"a1"},
	})
	message = readMessage(t, conn)
	require.Equal(t, EventAlertsCleared, message.Event)
}

func TestBridgeForwardsPresenterEvents(t *testing.T) {
	hub, conn := newHubServer(t)
	bridge := NewBridge(hub)

	bridge.OnPresenterEvent(alerts.PresenterEvent{
		Type:         alerts.PresenterShown,
		Notification: alerts.Notification{Alert: alerts.AlertRecord{ID: "n1"}},
	})
	message := readMessage(t, conn)
	require.Equal(t, EventNotificationShown, message.Event)
}

func TestHubCuePlaysThroughBroadcast(t *testing.T) {
	hub, conn := newHubServer(t)
	cue := NewHubCue(hub, "")

	require.NoError(t, cue.Play(context.Background()))
	message := readMessage(t, conn)
	require.Equal(t, EventCuePlay, message.Event)
}
