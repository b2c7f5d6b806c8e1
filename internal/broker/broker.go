// Package broker wraps RabbitMQ for the two queues the platform exchanges
// events over: orders.to_pay (Orders → Payments) and payment.results
// (Payments → Orders). Both the outbox relay and the inbox consumer sit on
// top of this package rather than talking to amqp091-go directly.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Broker owns one AMQP connection and channel, reconnecting automatically
// when the underlying TCP connection drops.
type Broker struct {
	url          string
	exchange     string
	maxReconnect time.Duration
	logger       zerolog.Logger

	mu   sync.RWMutex
	conn *amqp.Connection
	ch   *amqp.Channel

	closed chan struct{}
}

// Config configures a new Broker.
type Config struct {
	URL               string
	Exchange          string
	ReconnectMaxDelay time.Duration
}

// Connect dials RabbitMQ, declares the platform's direct exchange, and
// starts a background goroutine that redials after any connection loss
// with a backoff capped at ReconnectMaxDelay (default 5s).
func Connect(cfg Config, logger zerolog.Logger) (*Broker, error) {
	maxDelay := cfg.ReconnectMaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	b := &Broker{
		url:          cfg.URL,
		exchange:     cfg.Exchange,
		maxReconnect: maxDelay,
		logger:       logger,
		closed:       make(chan struct{}),
	}

	if err := b.connect(); err != nil {
		return nil, err
	}

	go b.watch()
	return b, nil
}

func (b *Broker) connect() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(b.exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", b.exchange, err)
	}

	b.mu.Lock()
	b.conn = conn
	b.ch = ch
	b.mu.Unlock()
	return nil
}

// watch reconnects on connection loss with exponential backoff capped at
// maxReconnect, the same ceiling the Python reference implementation uses
// for its broker reconnect loop.
func (b *Broker) watch() {
	for {
		b.mu.RLock()
		conn := b.conn
		b.mu.RUnlock()

		notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-b.closed:
			return
		case err := <-notifyClose:
			if err != nil {
				b.logger.Warn().Err(err).Msg("broker connection lost, reconnecting")
			}
		}

		delay := 500 * time.Millisecond
		for {
			select {
			case <-b.closed:
				return
			default:
			}

			if err := b.connect(); err != nil {
				b.logger.Warn().Err(err).Dur("retry_in", delay).Msg("broker reconnect failed")
				time.Sleep(delay)
				delay *= 2
				if delay > b.maxReconnect {
					delay = b.maxReconnect
				}
				continue
			}
			b.logger.Info().Msg("broker reconnected")
			break
		}
	}
}

// DeclareQueue declares a durable queue bound to the platform exchange
// under routingKey.
func (b *Broker) DeclareQueue(routingKey string) error {
	b.mu.RLock()
	ch := b.ch
	b.mu.RUnlock()

	if _, err := ch.QueueDeclare(routingKey, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", routingKey, err)
	}
	if err := ch.QueueBind(routingKey, routingKey, b.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", routingKey, err)
	}
	return nil
}

// Publish sends payload to the platform exchange under routingKey with
// persistent delivery mode and content-type application/json.
func (b *Broker) Publish(ctx context.Context, routingKey string, payload []byte) error {
	b.mu.RLock()
	ch := b.ch
	exchange := b.exchange
	b.mu.RUnlock()

	return ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
		Timestamp:    time.Now(),
	})
}

// Consume registers a manual-ack consumer on routingKey. The queue must
// already have been declared via DeclareQueue.
func (b *Broker) Consume(routingKey, consumerTag string) (<-chan amqp.Delivery, error) {
	b.mu.RLock()
	ch := b.ch
	b.mu.RUnlock()

	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(routingKey, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", routingKey, err)
	}
	return deliveries, nil
}

// Close stops the reconnect loop and closes the channel and connection.
func (b *Broker) Close() error {
	close(b.closed)

	b.mu.RLock()
	ch, conn := b.ch, b.conn
	b.mu.RUnlock()

	if ch != nil {
		ch.Close()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
