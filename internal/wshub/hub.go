package wshub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"polyculture/internal/metrics"
)

// Inbound message types. The lowercase trio is relayed verbatim to every
// connection rather than handled by the game engine.
const (
	MsgCreateRoom   = "CREATE_ROOM"
	MsgJoinRoom     = "JOIN_ROOM"
	MsgStartGame    = "START_GAME"
	MsgSubmitAnswer = "SUBMIT_ANSWER"
	MsgLeaveRoom    = "LEAVE_ROOM"
	MsgBuzz         = "buzz"
	MsgQuestion     = "question"
	MsgAnswer       = "answer"
)

// ClientMessage is the JSON envelope received from clients.
type ClientMessage struct {
	Type        string    `json:"type"`
	RoomCode    string    `json:"roomCode,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	Username    string    `json:"username,omitempty"`
	Themes      []string  `json:"themes,omitempty"`
	PoolID      int       `json:"poolId,omitempty"`
	TotalRounds int       `json:"totalRounds,omitempty"`
	Answer      string    `json:"answer,omitempty"`
	Timestamp   int64     `json:"timestamp,omitempty"`
	Data        RelayData `json:"data,omitempty"`
}

// RelayData is the payload of the buzz/question/answer relay messages.
type RelayData struct {
	Name     string `json:"name,omitempty"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
}

// Client represents a single WebSocket connection in the hub. UserID,
// Username and RoomCode are bound via Attach once the client identifies
// itself; the hub lock guards them.
type Client struct {
	ID       string
	UserID   string
	Username string
	RoomCode string
	Conn     *websocket.Conn
	Send     chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub is the connection directory: it maps connection ids to live clients
// and answers room membership queries. It knows nothing about game rules.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	order   []*Client // registration order, the broadcast order
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	h.order = append(h.order, c)
	metrics.ActiveConnections.Inc()
}

// Unregister removes the client and closes its Send channel. The removed
// client is returned so the caller can run leave semantics off its metadata.
func (h *Hub) Unregister(id string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return nil
	}
	delete(h.clients, id)
	for i, oc := range h.order {
		if oc.ID == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	close(c.Send)
	metrics.ActiveConnections.Dec()
	return c
}

// Get returns the client for a connection id, or nil.
func (h *Hub) Get(id string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

// Attach binds user identity and room membership to a live connection.
func (h *Hub) Attach(id, userID, username, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		c.UserID = userID
		c.Username = username
		c.RoomCode = roomCode
	}
}

// Broadcast sends the event to every connection attached to roomCode, in
// registration order. Non-blocking: drops if a client's channel is full.
func (h *Hub) Broadcast(roomCode string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.order {
		if c.RoomCode != roomCode {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// Drop message if channel full
		}
	}
}

// BroadcastAll sends the event to every registered connection.
func (h *Hub) BroadcastAll(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.order {
		select {
		case c.Send <- data:
		default:
		}
	}
}

// SendTo unicasts the event to one client.
func (h *Hub) SendTo(c *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal unicast", "error", err)
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}
