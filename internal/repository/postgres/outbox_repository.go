package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orderflow/platform/internal/domain/outbox"
)

// OutboxRepository implements outbox.Repository using PostgreSQL. Orders
// calls Insert from OrderService.CreateOrder, inside the same transaction as
// OrderRepository.Create; Payments calls Insert from internal/statemachine.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *OutboxRepository) Insert(ctx context.Context, m *outbox.Message) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO outbox_messages (event_type, routing_key, payload, processed, created_at)
		 VALUES ($1, $2, $3, false, $4)
		 RETURNING id`,
		m.EventType, m.RoutingKey, m.Payload, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// GetPending scans up to limit unprocessed rows ordered by id ascending, so
// events are relayed in the order their owning transactions committed. No
// SKIP LOCKED: exactly one relay instance is ever active at a time, held by
// the distributed lock in internal/distlock.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, event_type, routing_key, payload, processed, created_at, processed_at
		 FROM outbox_messages WHERE processed = false
		 ORDER BY id ASC
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*outbox.Message
	for rows.Next() {
		m := &outbox.Message{}
		if err := rows.Scan(&m.ID, &m.EventType, &m.RoutingKey, &m.Payload, &m.Processed, &m.CreatedAt, &m.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id int64) error {
	now := time.Now()
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE outbox_messages SET processed = true, processed_at = $1 WHERE id = $2`, now, id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox message processed: %w", err)
	}
	return nil
}
