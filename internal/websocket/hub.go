package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/trackmail/trackmail-backend/internal/models"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypePing               MessageType = "ping"
	MessageTypePong               MessageType = "pong"
	MessageTypeApplicationCreated MessageType = "application_created"
	MessageTypeApplicationUpdated MessageType = "application_updated"
	MessageTypeError              MessageType = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type        MessageType         `json:"type"`
	Application *models.Application `json:"application,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Hub maintains the set of active clients and routes application change
// notifications to the connections owned by each user. A connection is bound
// to its user at upgrade time, so there is no subscription protocol.
type Hub struct {
	// Connections grouped by owning user ID
	users map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Notifications to fan out
	notify chan *notification

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *slog.Logger
}

type notification struct {
	userID  string
	message []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		users:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notify:     make(chan *notification, 256),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.users[client.userID] == nil {
				h.users[client.userID] = make(map[*Client]bool)
			}
			h.users[client.userID][client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client registered", slog.String("user_id", client.userID))
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.users[client.userID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.users, client.userID)
					}
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unregistered", slog.String("user_id", client.userID))
			}

		case n := <-h.notify:
			h.mu.RLock()
			for client := range h.users[n.userID] {
				select {
				case client.send <- n.message:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// NotifyApplication pushes an application change to every connection the user
// currently holds. It satisfies the ingestion pipeline's notifier contract.
func (h *Hub) NotifyApplication(userID, event string, app *models.Application) {
	msg := WSMessage{
		Type:        MessageType(event),
		Application: app,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal notification", slog.Any("error", err))
		}
		return
	}

	h.notify <- &notification{
		userID:  userID,
		message: data,
	}
}
