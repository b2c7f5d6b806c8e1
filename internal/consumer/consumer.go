// Package consumer implements the generic half of C3: draining a broker
// queue with manual acknowledgement, deduplicating each delivery through
// the inbox, and handing the decoded payload to a service-specific
// Handler inside the same transaction as the inbox row.
package consumer

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/orderflow/platform/internal/domain/inbox"
)

// Handler is the service-specific half of an inbox consumer: Payments
// implements this over order_created, Orders over payment_result.
type Handler interface {
	// EventType labels the InboxMessage row this handler produces.
	EventType() string
	// DeriveMessageID computes the deterministic dedup id for one delivery.
	DeriveMessageID(payload []byte) (string, error)
	// Handle executes the domain effect for one (not-yet-seen) delivery,
	// inside the transaction the consumer already opened.
	Handle(ctx context.Context, payload []byte) error
}

// txRunner is the subset of *postgres.TxManager the consumer needs.
// Satisfied by *postgres.TxManager in production and a fake in tests.
type txRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Consumer drains one broker queue, applying Handler to every delivery not
// already recorded in the inbox.
type Consumer struct {
	deliveries <-chan amqp.Delivery
	inboxRepo  inbox.Repository
	txManager  txRunner
	handler    Handler
	logger     zerolog.Logger
}

func New(deliveries <-chan amqp.Delivery, inboxRepo inbox.Repository, txManager txRunner, handler Handler, logger zerolog.Logger) *Consumer {
	return &Consumer{
		deliveries: deliveries,
		inboxRepo:  inboxRepo,
		txManager:  txManager,
		handler:    handler,
		logger:     logger,
	}
}

// Run blocks, processing deliveries until ctx is cancelled or the
// deliveries channel closes (broker shutdown).
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-c.deliveries:
			if !ok {
				return nil
			}
			c.process(ctx, d)
		}
	}
}

// process runs one delivery through dedup + Handle inside a single
// transaction, acking only after commit and nacking-with-requeue on any
// infrastructure error (a duplicate is never nacked; it is acked and
// dropped).
func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	messageID, err := c.handler.DeriveMessageID(d.Body)
	if err != nil {
		c.logger.Error().Err(err).Msg("consumer: failed to derive message id, dropping")
		d.Nack(false, false)
		return
	}

	duplicate := false
	err = c.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		msg := inbox.New(messageID, c.handler.EventType(), d.Body)
		ok, err := c.inboxRepo.Insert(txCtx, msg)
		if err != nil {
			return fmt.Errorf("insert inbox message: %w", err)
		}
		if !ok {
			duplicate = true
			return nil
		}

		if err := c.handler.Handle(txCtx, d.Body); err != nil {
			return fmt.Errorf("handle %s: %w", c.handler.EventType(), err)
		}

		return c.inboxRepo.MarkProcessed(txCtx, msg.ID)
	})

	if err != nil {
		c.logger.Error().Err(err).Str("message_id", messageID).Msg("consumer: processing failed, requeuing")
		d.Nack(false, true)
		return
	}

	if duplicate {
		c.logger.Info().Str("message_id", messageID).Msg("consumer: duplicate delivery, acking without re-executing")
	}
	d.Ack(false)
}
