package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const channelName = "order_updates"

// Bus combines a local Hub with a Redis pub/sub overlay so an order update
// reaches a user's socket even when that socket is held open on a different
// instance. Publish hands the update to the publisher's own Hub and also
// writes it to Redis; every subscribed instance applies what it receives to
// its local Hub. A publisher that also subscribes therefore delivers its own
// update to its local sockets twice.
type Bus struct {
	hub    *Hub
	redis  *redis.Client
	logger zerolog.Logger
}

func NewBus(hub *Hub, redisClient *redis.Client, logger zerolog.Logger) *Bus {
	return &Bus{hub: hub, redis: redisClient, logger: logger}
}

// Publish announces an order update to every instance.
func (b *Bus) Publish(ctx context.Context, update OrderUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal order update: %w", err)
	}
	b.hub.SendToUser(update.UserID, update)
	if err := b.redis.Publish(ctx, channelName, payload).Err(); err != nil {
		return fmt.Errorf("publish order update: %w", err)
	}
	return nil
}

// Subscribe runs until ctx is canceled, applying every order update
// received from Redis (including ones this instance published) to the
// local Hub.
func (b *Bus) Subscribe(ctx context.Context) {
	sub := b.redis.Subscribe(ctx, channelName)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var update OrderUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				b.logger.Error().Err(err).Msg("malformed order update on realtime bus")
				continue
			}
			b.hub.SendToUser(update.UserID, update)
		}
	}
}
