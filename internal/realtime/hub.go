// Package realtime implements C4, the Realtime Bus: a per-instance registry
// of WebSocket clients keyed by user id, fanned out across horizontally
// scaled instances by a Redis pub/sub overlay (bus.go) so an order update
// produced on one instance reaches a user's socket regardless of which
// instance they are connected to.
package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub holds every client connected to this process instance, indexed by
// user id so a targeted send never has to scan all connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	logger zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes register/unregister events until ctx-like stop is signaled
// by closing done.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*Client]bool)
			}
			h.clients[c.userID][c] = true
			h.mu.Unlock()
			h.logger.Debug().Int64("user_id", c.userID).Msg("websocket client registered")
		case c := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[c.userID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.send)
				}
				if len(set) == 0 {
					delete(h.clients, c.userID)
				}
			}
			h.mu.Unlock()
			h.logger.Debug().Int64("user_id", c.userID).Msg("websocket client unregistered")
		}
	}
}

// Register accepts conn as a new client for userID, greets it with
// TypeConnectionEstablished and starts its pumps.
func (h *Hub) Register(conn *websocket.Conn, userID int64) {
	h.RegisterWithGreeting(conn, userID, TypeConnectionEstablished)
}

// RegisterWithGreeting is like Register but lets the caller pick the
// greeting envelope type (the gateway sends "gateway_connected" to
// distinguish its sockets from a service's own).
func (h *Hub) RegisterWithGreeting(conn *websocket.Conn, userID int64, greeting string) {
	c := newClient(h, conn, userID, h.logger)
	h.register <- c
	c.send <- Envelope{Type: greeting, Data: ConnectionEstablished{UserID: userID, Status: "connected"}}
	go c.Start()
}

// SendToUser delivers msg to every socket userID currently holds open on
// this instance. msg is written to the wire as-is (an Envelope for
// greetings/pings, a flat OrderUpdate for order updates). Returns the
// number of sockets it was handed to, so callers can decide whether to
// also rely on the cross-instance overlay.
func (h *Hub) SendToUser(userID int64, msg any) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set, ok := h.clients[userID]
	if !ok {
		return 0
	}
	delivered := 0
	for c := range set {
		select {
		case c.send <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

// ConnectionCount returns the number of open sockets on this instance.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, set := range h.clients {
		total += len(set)
	}
	return total
}
