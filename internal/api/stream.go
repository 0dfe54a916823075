package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PredictionEvent describes websocket payloads emitted when a user's prediction completes.
type PredictionEvent struct {
	Type       string         `json:"type"`
	Prediction *PredictionDTO `json:"prediction,omitempty"`
	Message    string         `json:"message,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn   *websocket.Conn
	userID uint
	mu     sync.Mutex
}

// PredictionNotifier tracks websocket clients per user and fans out their prediction events.
type PredictionNotifier struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewPredictionNotifier constructs a notifier instance.
func NewPredictionNotifier() *PredictionNotifier {
	return &PredictionNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection for userID and returns a client handle.
func (n *PredictionNotifier) Register(userID uint, conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn, userID: userID}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	n.mu.Unlock()

	_ = client.writeJSON(PredictionEvent{Type: "connected", Timestamp: time.Now().UTC()})
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *PredictionNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends event to every client registered for userID.
func (n *PredictionNotifier) Broadcast(userID uint, event PredictionEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	defer n.mu.Unlock()
	for client := range n.clients {
		if client.userID != userID {
			continue
		}
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
}

// Count returns the number of connected clients.
func (n *PredictionNotifier) Count() int {
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
