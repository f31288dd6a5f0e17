package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForRoomSize(t *testing.T, hub *Hub, room string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize(room) != n {
		if time.Now().After(deadline) {
			t.Fatalf("room %s never reached %d clients (have %d)", room, n, hub.RoomSize(room))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsOnlyToTheEventRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	e := echo.New()
	e.GET("/ws/:eventID", JoinHandler(hub, "music"))
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn := dial(t, srv, "/ws/7")
	waitForRoomSize(t, hub, Room("music", 7), 1)

	// A message for another event must not reach this client; the queued
	// broadcast order guarantees we would see it first if it leaked.
	hub.Publish(Room("music", 8), EventRequestNew, map[string]uint64{"id": 99})
	hub.Publish(Room("music", 7), EventQueueReordered, map[string][]uint64{"order": {3, 1, 2}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(payload, &env))
	assert.Equal(t, EventQueueReordered, env.Event)
}

func TestHubTracksJoinsAndLeaves(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	e := echo.New()
	e.GET("/ws/:eventID", JoinHandler(hub, "karaoke"))
	srv := httptest.NewServer(e)
	defer srv.Close()

	room := Room("karaoke", 3)
	first := dial(t, srv, "/ws/3")
	second := dial(t, srv, "/ws/3")
	waitForRoomSize(t, hub, room, 2)

	first.Close()
	waitForRoomSize(t, hub, room, 1)
	second.Close()
	waitForRoomSize(t, hub, room, 0)
}

func TestJoinRejectsBadEventID(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	e := echo.New()
	e.GET("/ws/:eventID", JoinHandler(hub, "music"))
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/not-a-number"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
