// Package streaming pushes engine events to WebSocket clients: the
// admin console and web frontends watch lifecycle transitions and
// settlements land in real time.
package streaming

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"
)

// EventType represents the type of streaming event.
type EventType string

const (
	EventTypeTransition EventType = "transition"
	EventTypeSettlement EventType = "settlement"
	EventTypeParlay     EventType = "parlay"
	EventTypeMatch      EventType = "match"
	EventTypeStatus     EventType = "status"
	EventTypeError      EventType = "error"
	EventTypeHeartbeat  EventType = "heartbeat"
)

// allEventTypes is the default subscription set for new clients.
var allEventTypes = []EventType{
	EventTypeTransition,
	EventTypeSettlement,
	EventTypeParlay,
	EventTypeMatch,
	EventTypeStatus,
	EventTypeError,
	EventTypeHeartbeat,
}

// Event is a streaming event sent to clients.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Hub manages WebSocket connections and broadcasts engine events.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new streaming hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop and blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("[WS] Client connected (%d total)", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("[WS] Client disconnected (%d remaining)", h.ClientCount())

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-heartbeat.C:
			h.Broadcast(Event{
				Type:      EventTypeHeartbeat,
				Timestamp: time.Now(),
				Data:      map[string]interface{}{"clients": h.ClientCount()},
			})
		}
	}
}

// closeAll disconnects every client on shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) broadcastEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WS] Failed to marshal event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.isSubscribed(event.Type) {
			continue
		}

		select {
		case client.send <- data:
		default:
			// Client buffer full, drop the connection.
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// Broadcast sends an event to all subscribed clients. Events are
// dropped rather than blocking the engine loops when the buffer fills.
func (h *Hub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[WS] Broadcast channel full, dropping %s event", event.Type)
	}
}

// BroadcastTransition broadcasts an applied lifecycle transition.
func (h *Hub) BroadcastTransition(transition interface{}) {
	h.Broadcast(Event{Type: EventTypeTransition, Timestamp: time.Now(), Data: transition})
}

// BroadcastSettlement broadcasts a settlement result.
func (h *Hub) BroadcastSettlement(result interface{}) {
	h.Broadcast(Event{Type: EventTypeSettlement, Timestamp: time.Now(), Data: result})
}

// BroadcastParlay broadcasts a computed parlay slip.
func (h *Hub) BroadcastParlay(slip interface{}) {
	h.Broadcast(Event{Type: EventTypeParlay, Timestamp: time.Now(), Data: slip})
}

// BroadcastMatch broadcasts a match update.
func (h *Hub) BroadcastMatch(match interface{}) {
	h.Broadcast(Event{Type: EventTypeMatch, Timestamp: time.Now(), Data: match})
}

// BroadcastStatus broadcasts a daemon status update.
func (h *Hub) BroadcastStatus(status interface{}) {
	h.Broadcast(Event{Type: EventTypeStatus, Timestamp: time.Now(), Data: status})
}

// BroadcastError broadcasts an error event.
func (h *Hub) BroadcastError(err error, context string) {
	h.Broadcast(Event{
		Type:      EventTypeError,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"error":   err.Error(),
			"context": context,
		},
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS handles WebSocket upgrade requests.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	client := newClient(h, conn)
	h.register <- client

	go client.writePump()
	go client.readPump()
}
