// Package realtime implements the room-scoped broadcast layer.  Every
// mutation of the request queue or the module config fans out exactly one
// message to the websocket clients subscribed to the mutated event's
// room.  Catalog likes are not broadcast; clients see fresh counts on the
// next catalog read.  Delivery is best-effort: a slow or dead client is
// dropped, never waited on, so the mutation path cannot stall.
package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Broadcast event names pushed to clients.
const (
	EventRequestNew     = "request:new"
	EventRequestUpdated = "request:updated"
	EventRequestDeleted = "request:deleted"
	EventQueueReordered = "queue:reordered"
	EventConfigUpdated  = "config:updated"
)

// Room builds the broadcast scope identifier for one module instance of
// one event.
func Room(module string, eventID uint64) string {
	return fmt.Sprintf("%s:%d", module, eventID)
}

// Envelope is the wire format of every pushed message.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type roomMessage struct {
	room    string
	payload []byte
}

// Hub tracks connected clients grouped by room and fans messages out to
// them.  It is constructed once at startup and handed to every component
// that emits; there is no package-level instance.  Run must be started in
// its own goroutine before the first Publish.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 256),
	}
}

// Run processes joins, leaves and broadcasts until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if clients[client] {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[msg.room] {
				select {
				case client.send <- msg.payload:
				default:
					// Client is not draining its buffer; drop it rather
					// than block the fan-out.
					close(client.send)
					delete(h.rooms[msg.room], client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish marshals an envelope and schedules it for every client in the
// room.  It never blocks: when the broadcast buffer is full the message is
// dropped and logged, keeping the mutation path decoupled from delivery.
func (h *Hub) Publish(room, event string, data any) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("realtime: marshal %s for room %s failed: %v", event, room, err)
		return
	}
	select {
	case h.broadcast <- roomMessage{room: room, payload: payload}:
	default:
		log.Printf("realtime: broadcast buffer full, dropping %s for room %s", event, room)
	}
}

// RoomSize reports how many clients are currently joined to a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
