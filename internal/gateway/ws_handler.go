package gateway

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/orderflow/platform/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketHandler terminates client WebSockets directly at the gateway
// and registers them with the shared Hub. No downstream WebSocket is
// opened to Orders or Payments; the gateway participates in the Realtime
// Bus itself.
type WebSocketHandler struct {
	hub    *realtime.Hub
	logger zerolog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	h.hub.RegisterWithGreeting(conn, userID, realtime.TypeGatewayConnected)
}
