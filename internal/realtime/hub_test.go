package realtime

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestHubSendToUserNoClients(t *testing.T) {
	h := NewHub(zerolog.Nop())
	delivered := h.SendToUser(42, OrderUpdate{Type: TypeOrderUpdate, OrderID: 1})
	if delivered != 0 {
		t.Errorf("expected 0 deliveries with no registered clients, got %d", delivered)
	}
}

func TestHubConnectionCountEmpty(t *testing.T) {
	h := NewHub(zerolog.Nop())
	if h.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", h.ConnectionCount())
	}
}
