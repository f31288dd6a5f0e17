package realtime

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	maxMsgSize = 512
)

// Client is one websocket connection joined to a single room.  Connections
// may be anonymous (attendee phones, the public display screen); all
// mutating operations are authorized on the HTTP surface, never here.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string
}

// readPump discards inbound frames and watches for the connection to go
// away.  Leaving a room is simply disconnecting.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards broadcast payloads to the connection and keeps it
// alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	// Attendee phones and display screens connect from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// JoinHandler returns an Echo handler that upgrades the connection and
// joins it to the module room of the event in the path.  Joining twice
// from the same device just yields two independent subscriptions, so the
// operation is effectively idempotent.
func JoinHandler(hub *Hub, module string) echo.HandlerFunc {
	return func(c echo.Context) error {
		eventID, err := strconv.ParseUint(c.Param("eventID"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_error", "message": "invalid event id"})
		}
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return nil // Upgrade already wrote the error response
		}
		client := &Client{
			hub:  hub,
			conn: conn,
			send: make(chan []byte, 64),
			room: Room(module, eventID),
		}
		hub.register <- client
		go client.writePump()
		client.readPump()
		return nil
	}
}
