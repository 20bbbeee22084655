package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/ezh-cafe/api/internal/service"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// venueEvent is an internal struct for routing events to specific venues
type venueEvent struct {
	VenueID string
	Event   Event
}

// Hub maintains the set of active staff clients and broadcasts order events
// to the room of the venue they belong to.
type Hub struct {
	// Registered clients by venue ID
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *venueEvent
	// done is closed when Run returns; later broadcasts are dropped.
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *venueEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.venueID] == nil {
				h.rooms[client.venueID] = make(map[*Client]bool)
			}
			h.rooms[client.venueID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				log.Printf("WARN: marshal websocket event %s: %v", event.Event.Type, err)
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.VenueID] {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than block the hub.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.venueID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.venueID)
	}
}

// join adds client to its venue room. It reports false once the hub has
// stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.remove(client)
		}
	}
}

// BroadcastToVenue sends an event to all clients subscribed to a venue.
// It does not block once the hub has stopped.
func (h *Hub) BroadcastToVenue(venueID string, event Event) {
	h.enqueue(context.Background(), &venueEvent{VenueID: venueID, Event: event})
}

func (h *Hub) enqueue(ctx context.Context, ev *venueEvent) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
		log.Printf("WARN: hub stopped, dropping %s for venue %s", ev.Event.Type, ev.VenueID)
	case <-ctx.Done():
		log.Printf("WARN: dropping %s for venue %s: %v", ev.Event.Type, ev.VenueID, ctx.Err())
	}
}

// Publish implements service.EventSink.
func (h *Hub) Publish(ctx context.Context, event string, order database.Order) {
	payload, err := json.Marshal(service.NewOrderView(order))
	if err != nil {
		log.Printf("WARN: marshal order %s for websocket: %v", order.ID, err)
		return
	}
	h.enqueue(ctx, &venueEvent{VenueID: order.VenueID, Event: Event{Type: event, Payload: payload}})
}
