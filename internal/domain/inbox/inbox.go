// Package inbox implements the read side of the transactional inbox
// pattern: each consumer's defense against duplicate broker redelivery of
// the same logical event (order_created in Payments, payment_result in
// Orders).
package inbox

import (
	"context"
	"time"
)

// Message records that a broker message with a given deterministic id has
// been observed. Its presence (regardless of Processed) means the message
// has been at least seen.
type Message struct {
	ID          int64
	MessageID   string
	EventType   string
	Payload     []byte
	Processed   bool
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func New(messageID, eventType string, payload []byte) *Message {
	return &Message{
		MessageID: messageID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// Repository is the persistence port for the inbox, backed by C1.
type Repository interface {
	// Insert attempts to record messageID as seen. ok=false with err=nil
	// means a row already existed (unique violation on message_id); the
	// caller must ack the broker message without re-executing domain effects.
	Insert(ctx context.Context, m *Message) (ok bool, err error)
	MarkProcessed(ctx context.Context, id int64) error
}
