// Package outboxrelay implements C2: the singleton process that drains a
// service's outbox table onto the broker. Exactly one replica is ever
// active at a time, arbitrated by internal/distlock, so outbox rows are
// published in id order. Each row is marked processed only after its
// publish succeeds, so a crash between the two republishes the row
// (at-least-once); consumers dedupe through their inbox.
package outboxrelay

import (
	"context"
	"time"

	"github.com/orderflow/platform/internal/distlock"
	"github.com/orderflow/platform/internal/domain/outbox"
	"github.com/rs/zerolog"
)

// publisher is the subset of *broker.Broker the relay needs. Satisfied by
// *broker.Broker in production and a fake in tests.
type publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
}

// Config controls the relay's polling and lock behaviour.
type Config struct {
	BatchSize     int
	EmptyInterval time.Duration
	PollInterval  time.Duration
	LockTTL       time.Duration
	LockKey       string
}

// Relay scans a service's outbox table and publishes pending rows onto the
// broker under their routing key, holding a distributed lock for the
// lifetime of its run so only one replica drains the table at a time.
type Relay struct {
	repo    outbox.Repository
	broker  publisher
	lockCli *distlock.Lock
	cfg     Config
	logger  zerolog.Logger
}

func New(repo outbox.Repository, b publisher, lock *distlock.Lock, cfg Config, logger zerolog.Logger) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.EmptyInterval <= 0 {
		cfg.EmptyInterval = 500 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	return &Relay{repo: repo, broker: b, lockCli: lock, cfg: cfg, logger: logger}
}

// Run blocks until ctx is cancelled, repeatedly trying to become the
// leader and, once leader, draining the outbox until it loses the lock or
// ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		acquired, err := r.lockCli.TryAcquire(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Msg("outbox relay: lock acquire failed")
		}
		if !acquired {
			if !sleep(ctx, r.cfg.LockTTL/2) {
				return nil
			}
			continue
		}

		r.logger.Info().Msg("outbox relay: acquired leader lock, draining outbox")
		if err := r.drainUntilLockLost(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("outbox relay: drain loop exited")
		}
		r.lockCli.Release(ctx)
	}
}

// drainUntilLockLost repeatedly scans and publishes batches, extending the
// lock after every cycle, until the lock is lost or ctx is cancelled.
func (r *Relay) drainUntilLockLost(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := r.lockCli.Extend(ctx, r.cfg.LockTTL); err != nil {
			r.logger.Warn().Err(err).Msg("outbox relay: lost leader lock")
			return nil
		}

		published, err := r.drainBatch(ctx)
		if err != nil {
			r.logger.Error().Err(err).Msg("outbox relay: batch failed")
			if !sleep(ctx, r.cfg.EmptyInterval) {
				return nil
			}
			continue
		}

		if published == 0 {
			if !sleep(ctx, r.cfg.EmptyInterval) {
				return nil
			}
			continue
		}

		if !sleep(ctx, r.cfg.PollInterval) {
			return nil
		}
	}
}

// drainBatch scans up to BatchSize pending rows and publishes each to the
// broker, marking it processed as soon as the publish succeeds. A row that
// fails to publish is left pending and retried on the next cycle.
func (r *Relay) drainBatch(ctx context.Context) (int, error) {
	messages, err := r.repo.GetPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, m := range messages {
		if err := r.broker.Publish(ctx, m.RoutingKey, m.Payload); err != nil {
			r.logger.Error().Err(err).Int64("outbox_id", m.ID).Str("routing_key", m.RoutingKey).Msg("outbox relay: publish failed")
			continue
		}
		if err := r.repo.MarkProcessed(ctx, m.ID); err != nil {
			r.logger.Error().Err(err).Int64("outbox_id", m.ID).Msg("outbox relay: mark processed failed")
			continue
		}
		published++
	}
	return published, nil
}

// sleep waits for d or ctx cancellation, returning false if ctx was
// cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
