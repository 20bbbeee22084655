package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, venueID string) *Client {
	return &Client{
		hub:     hub,
		venueID: venueID,
		send:    make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)

	venueID := "ezh-lenina"
	client := mockClient(hub, venueID)

	// Register client
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[venueID] == nil {
		t.Fatal("venue room not created")
	}
	if !hub.rooms[venueID][client] {
		t.Fatal("client not registered in venue room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := startHub(t)

	venueID := "ezh-lenina"
	client := mockClient(hub, venueID)

	// Register client
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Unregister client
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[venueID] != nil {
		t.Fatal("venue room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleVenue(t *testing.T) {
	hub := startHub(t)

	venue1 := "ezh-lenina"
	venue2 := "ezh-arbat"

	client1 := mockClient(hub, venue1)
	client2 := mockClient(hub, venue2)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	// Broadcast to venue1 only
	testPayload := json.RawMessage(`{"order_id":"test-123"}`)
	event := Event{
		Type:    "order.created",
		Payload: testPayload,
	}
	hub.BroadcastToVenue(venue1, event)

	// Check client1 receives the message
	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != "order.created" {
			t.Errorf("expected type 'order.created', got '%s'", received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	// Check client2 does NOT receive the message
	select {
	case <-client2.send:
		t.Fatal("client2 should not have received message for different venue")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToMultipleClientsInSameVenue(t *testing.T) {
	hub := startHub(t)

	venueID := "ezh-lenina"
	client1 := mockClient(hub, venueID)
	client2 := mockClient(hub, venueID)
	client3 := mockClient(hub, venueID)

	// Register all clients to same venue
	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	// Broadcast event
	testPayload := json.RawMessage(`{"status":"completed"}`)
	event := Event{
		Type:    "order.updated",
		Payload: testPayload,
	}
	hub.BroadcastToVenue(venueID, event)

	// All three clients should receive the message
	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "order.updated" {
				t.Errorf("client%d: expected type 'item.updated', got '%s'", i+1, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestHubMultipleVenuesIsolation(t *testing.T) {
	hub := startHub(t)

	venue1 := "ezh-lenina"
	venue2 := "ezh-arbat"
	venue3 := "ezh-tverskaya"

	// Create 2 clients per venue
	clients := map[string][]*Client{
		venue1: {mockClient(hub, venue1), mockClient(hub, venue1)},
		venue2: {mockClient(hub, venue2), mockClient(hub, venue2)},
		venue3: {mockClient(hub, venue3), mockClient(hub, venue3)},
	}

	// Register all clients
	for _, clientList := range clients {
		for _, client := range clientList {
			hub.register <- client
		}
	}
	time.Sleep(10 * time.Millisecond)

	// Broadcast to venue2 only
	event := Event{
		Type:    "order.updated",
		Payload: json.RawMessage(`{"venue_id":"` + venue2 + `"}`),
	}
	hub.BroadcastToVenue(venue2, event)

	// Only venue2 clients should receive
	for venueID, clientList := range clients {
		for i, client := range clientList {
			select {
			case msg := <-client.send:
				if venueID != venue2 {
					t.Fatalf("venue %s client %d should not receive message", venueID, i)
				}
				var received Event
				if err := json.Unmarshal(msg, &received); err != nil {
					t.Fatalf("unmarshal error: %v", err)
				}
				if received.Type != "order.updated" {
					t.Errorf("wrong event type: %s", received.Type)
				}
			case <-time.After(50 * time.Millisecond):
				if venueID == venue2 {
					t.Fatalf("venue2 client %d should have received message", i)
				}
				// Expected for other venues
			}
		}
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := startHub(t)

	venueID := "ezh-lenina"
	client1 := mockClient(hub, venueID)
	client2 := mockClient(hub, venueID)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[venueID]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[venueID]))
	}
	hub.mu.RUnlock()

	// Unregister first client
	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[venueID]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[venueID]))
	}
	hub.mu.RUnlock()

	// Unregister second client
	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[venueID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToNonExistentVenue(t *testing.T) {
	hub := startHub(t)

	// Create a client for venue1
	venue1 := "ezh-lenina"
	client1 := mockClient(hub, venue1)
	hub.register <- client1
	time.Sleep(10 * time.Millisecond)

	// Broadcast to venue2 (doesn't exist)
	venue2 := "ezh-arbat"
	event := Event{
		Type:    "order.created",
		Payload: json.RawMessage(`{"test":"data"}`),
	}
	hub.BroadcastToVenue(venue2, event)

	// client1 should NOT receive anything
	select {
	case <-client1.send:
		t.Fatal("client should not receive message for different venue")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}

func TestPublishSendsOrderView(t *testing.T) {
	hub := startHub(t)

	client := mockClient(hub, "ezh-lenina")
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	order := database.Order{
		ID:          uuid.New(),
		VenueID:     "ezh-lenina",
		CartItems:   []byte(`[{"product_id":"latte","quantity":1}]`),
		TotalAmount: 40000,
		Status:      database.OrderStatusAwaitingPayment,
	}
	hub.Publish(context.Background(), "order.created", order)

	select {
	case msg := <-client.send:
		var received struct {
			Type    string `json:"type"`
			Payload struct {
				ID          uuid.UUID       `json:"id"`
				Status      string          `json:"status"`
				TotalAmount int64           `json:"total_amount"`
				CartItems   json.RawMessage `json:"cart_items"`
			} `json:"payload"`
		}
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if received.Type != "order.created" || received.Payload.ID != order.ID {
			t.Errorf("unexpected event: %s", msg)
		}
		if received.Payload.TotalAmount != 40000 || received.Payload.Status != "awaiting_payment" {
			t.Errorf("unexpected payload: %s", msg)
		}
		if string(received.Payload.CartItems) != `[{"product_id":"latte","quantity":1}]` {
			t.Errorf("cart items not passed through: %s", received.Payload.CartItems)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive order event")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := mockClient(hub, "ezh-lenina")
	hub.register <- client
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if _, ok := <-client.send; ok {
		t.Fatal("client send channel should be closed on shutdown")
	}
}

func TestBroadcastAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		// More than the broadcast buffer holds.
		for i := 0; i < 300; i++ {
			hub.Publish(context.Background(), "order.updated", database.Order{ID: uuid.New(), VenueID: "ezh-lenina"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a stopped hub")
	}
}

func TestPublishHonoursContext(t *testing.T) {
	hub := NewHub() // never run

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Publish(ctx, "order.created", database.Order{ID: uuid.New(), VenueID: "ezh-lenina"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish ignored a cancelled context")
	}
}

func TestJoinAfterStop(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	client := mockClient(hub, "ezh-lenina")
	if hub.join(client) {
		t.Error("join succeeded on a stopped hub")
	}

	left := make(chan struct{})
	go func() {
		hub.leave(client)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked on a stopped hub")
	}
}
