// Package outbox implements the write side of the transactional outbox
// pattern shared by Orders and Payments: a row inserted in the same
// transaction as the domain change it announces, later drained by the
// relay (internal/outboxrelay) onto the broker.
package outbox

import (
	"context"
	"time"
)

// Message is one row of a service's outbox table.
type Message struct {
	ID          int64
	EventType   string
	RoutingKey  string
	Payload     []byte
	Processed   bool
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// New constructs a pending message for insertion inside a domain transaction.
func New(eventType, routingKey string, payload []byte) *Message {
	return &Message{
		EventType:  eventType,
		RoutingKey: routingKey,
		Payload:    payload,
		Processed:  false,
		CreatedAt:  time.Now(),
	}
}

// Repository is the persistence port for the outbox, backed by C1. Both
// OrderService.CreateOrder and the payment state machine call Insert
// directly inside their own TxManager transaction, right after the domain
// row whose creation the event announces. internal/outboxrelay, the only
// other consumer, never calls Insert: it only drains and acknowledges.
type Repository interface {
	// Insert appends a pending message.
	Insert(ctx context.Context, m *Message) error
	// GetPending scans up to limit unprocessed rows, ordered by id ascending.
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	// MarkProcessed flips processed=true and sets processed_at=now.
	MarkProcessed(ctx context.Context, id int64) error
}
