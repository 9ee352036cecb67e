package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"support-assistant/backend/internal/support"
)

// AdminEvent describes websocket payloads sent to connected admins.
type AdminEvent struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Pending   int64     `json:"pending,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// AdminNotifier keeps track of admin websocket clients and broadcasts admin request events.
type AdminNotifier struct {
	mu        sync.Mutex
	clients   map[*wsClient]struct{}
	lastEvent *AdminEvent
}

// NewAdminNotifier constructs a notifier instance.
func NewAdminNotifier() *AdminNotifier {
	return &AdminNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and replays the most recent event.
func (n *AdminNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	last := n.lastEvent
	n.mu.Unlock()

	if last != nil {
		_ = client.writeJSON(*last)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *AdminNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *AdminNotifier) Broadcast(event AdminEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	snapshot := event
	n.lastEvent = &snapshot
	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// Publish adapts support events for the admin stream.
func (n *AdminNotifier) Publish(evt support.Event) {
	n.Broadcast(AdminEvent{Type: evt.Type, Data: evt.Data})
}

// Clients reports the number of connected admins.
func (n *AdminNotifier) Clients() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients)
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
